package session_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"proposal-backend/internal/bootstrap"
	"proposal-backend/internal/llm"
	"proposal-backend/internal/session"
	"proposal-backend/internal/shared/config"
)

func buildTestApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		ObjectStoreType: "local",
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func scriptedLLM(scores map[string]float64) llm.Client {
	return llm.ClientFunc(func(_ context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
		score := scores[input.ProposalName]
		payload := fmt.Sprintf(`{
			"companyName": %q,
			"complianceScore": %v,
			"strengths": [], "weaknesses": [], "missingRequirements": [],
			"ratings": {"technical": 7, "financial": 7, "timeline": 7, "overall": 7},
			"detailedAnalysis": "ok"
		}`, input.ProposalName, score)
		return json.RawMessage(payload), nil
	})
}

func createSession(t *testing.T, router *gin.Engine) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("create session: expected 201, got %d (%s)", resp.Code, resp.Body.String())
	}
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.SessionID == "" {
		t.Fatal("expected sessionId")
	}
	return created.SessionID
}

func uploadFile(t *testing.T, router *gin.Engine, sessionID, role, name, content string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("role", role); err != nil {
		t.Fatalf("write role field: %v", err)
	}
	fileWriter, err := writer.CreateFormFile("file", name)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write([]byte(content)); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusCreated {
		t.Fatalf("upload %s: expected 201, got %d (%s)", name, resp.Code, resp.Body.String())
	}
}

func getSession(t *testing.T, router *gin.Engine, sessionID string) map[string]any {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("get session: expected 200, got %d", resp.Code)
	}
	var out map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	return out
}

func waitForStep(t *testing.T, router *gin.Engine, sessionID, step string) map[string]any {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := getSession(t, router, sessionID)
		if state["currentStep"] == step {
			return state
		}
		if errMsg, _ := state["error"].(string); errMsg != "" {
			t.Fatalf("analysis errored: %s", errMsg)
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("session never reached step %q", step)
	return nil
}

func TestAnalysisFlowEndToEnd(t *testing.T) {
	app := buildTestApp(t)
	app.SessionService.LLM = scriptedLLM(map[string]float64{"A.txt": 90, "B.txt": 70})
	router := app.Router

	sessionID := createSession(t, router)
	uploadFile(t, router, sessionID, "tz", "spec.txt", "build a widget")
	uploadFile(t, router, sessionID, "kp", "A.txt", "proposal from A")
	uploadFile(t, router, sessionID, "kp", "B.txt", "proposal from B")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/analyze", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("analyze: expected 202, got %d (%s)", resp.Code, resp.Body.String())
	}

	waitForStep(t, router, sessionID, session.StepResults)

	reqRes := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/results", nil)
	respRes := httptest.NewRecorder()
	router.ServeHTTP(respRes, reqRes)
	if respRes.Code != http.StatusOK {
		t.Fatalf("results: expected 200, got %d", respRes.Code)
	}

	var results struct {
		Results    []session.AnalysisResult  `json:"results"`
		Comparison *session.ComparisonResult `json:"comparisonResult"`
	}
	if err := json.NewDecoder(respRes.Body).Decode(&results); err != nil {
		t.Fatalf("decode results: %v", err)
	}
	if len(results.Results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results.Results))
	}
	if results.Comparison == nil {
		t.Fatal("expected comparison result")
	}
	if results.Comparison.Ranking[0].TotalScore != 90 {
		t.Fatalf("expected A.txt on top, got %+v", results.Comparison.Ranking[0])
	}
	if results.Comparison.BestChoice != results.Comparison.Ranking[0].KPID {
		t.Fatal("best choice does not match top of ranking")
	}
}

func TestAnalyzeWithoutDocumentsSetsSessionError(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router

	sessionID := createSession(t, router)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/analyze", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusAccepted {
		t.Fatalf("analyze: expected 202, got %d", resp.Code)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		state := getSession(t, router, sessionID)
		if errMsg, _ := state["error"].(string); errMsg != "" {
			if state["currentStep"] != session.StepUpload {
				t.Fatalf("expected step to remain upload, got %v", state["currentStep"])
			}
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("expected a session error for the empty-session guard")
}

func TestResetEndpointClearsSession(t *testing.T) {
	app := buildTestApp(t)
	app.SessionService.LLM = scriptedLLM(map[string]float64{"A.txt": 80})
	router := app.Router

	sessionID := createSession(t, router)
	uploadFile(t, router, sessionID, "tz", "spec.txt", "requirements")
	uploadFile(t, router, sessionID, "kp", "A.txt", "proposal")

	reqA := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/analyze", nil)
	respA := httptest.NewRecorder()
	router.ServeHTTP(respA, reqA)
	waitForStep(t, router, sessionID, session.StepResults)

	reqReset := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/reset", nil)
	respReset := httptest.NewRecorder()
	router.ServeHTTP(respReset, reqReset)
	if respReset.Code != http.StatusOK {
		t.Fatalf("reset: expected 200, got %d", respReset.Code)
	}

	state := getSession(t, router, sessionID)
	if state["currentStep"] != session.StepUpload {
		t.Fatalf("expected upload step after reset, got %v", state["currentStep"])
	}
	if _, ok := state["results"]; ok {
		t.Fatal("expected results cleared after reset")
	}

	reqDocs := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID+"/documents", nil)
	respDocs := httptest.NewRecorder()
	router.ServeHTTP(respDocs, reqDocs)
	var docs []map[string]any
	if err := json.NewDecoder(respDocs.Body).Decode(&docs); err != nil {
		t.Fatalf("decode documents: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected documents purged after reset, got %d", len(docs))
	}
}

func TestGetUnknownSessionReturns404(t *testing.T) {
	app := buildTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/sessions/nope", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestAnnouncementsEndpointListsMessages(t *testing.T) {
	app := buildTestApp(t)
	app.Announcer.Announce("Analysis complete", "polite")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/announcements", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", resp.Code, resp.Body.String())
	}
	var body struct {
		Announcements []struct {
			ID       string `json:"id"`
			Message  string `json:"message"`
			Priority string `json:"priority"`
		} `json:"announcements"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Announcements) != 1 {
		t.Fatalf("expected 1 announcement, got %d", len(body.Announcements))
	}
	if body.Announcements[0].Message != "Analysis complete" ||
		body.Announcements[0].Priority != "polite" ||
		body.Announcements[0].ID == "" {
		t.Fatalf("unexpected announcement: %+v", body.Announcements[0])
	}
}
