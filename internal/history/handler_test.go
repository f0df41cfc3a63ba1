package history_test

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
	app.SessionService.LLM = llm.ClientFunc(func(_ context.Context, input llm.AnalyzeInput) (json.RawMessage, error) {
		payload := fmt.Sprintf(`{
			"companyName": %q,
			"complianceScore": 85,
			"strengths": [], "weaknesses": [], "missingRequirements": [],
			"ratings": {"technical": 8, "financial": 8, "timeline": 8, "overall": 8},
			"detailedAnalysis": "ok"
		}`, input.ProposalName)
		return json.RawMessage(payload), nil
	})
	return app
}

func runAnalysis(t *testing.T, router *gin.Engine) string {
	t.Helper()

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/sessions", nil))
	var created struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode session: %v", err)
	}
	sessionID := created.SessionID

	for _, f := range []struct{ role, name string }{
		{"tz", "spec.txt"},
		{"kp", "offer.txt"},
	} {
		body := &bytes.Buffer{}
		writer := multipart.NewWriter(body)
		_ = writer.WriteField("role", f.role)
		fw, _ := writer.CreateFormFile("file", f.name)
		_, _ = fw.Write([]byte("content of " + f.name))
		_ = writer.Close()

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/documents", body)
		req.Header.Set("Content-Type", writer.FormDataContentType())
		up := httptest.NewRecorder()
		router.ServeHTTP(up, req)
		if up.Code != http.StatusCreated {
			t.Fatalf("upload %s: expected 201, got %d", f.name, up.Code)
		}
	}

	start := httptest.NewRecorder()
	router.ServeHTTP(start, httptest.NewRequest(http.MethodPost, "/api/v1/sessions/"+sessionID+"/analyze", nil))
	if start.Code != http.StatusAccepted {
		t.Fatalf("analyze: expected 202, got %d", start.Code)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		state := httptest.NewRecorder()
		router.ServeHTTP(state, httptest.NewRequest(http.MethodGet, "/api/v1/sessions/"+sessionID, nil))
		var s struct {
			CurrentStep string `json:"currentStep"`
			Error       string `json:"error"`
		}
		if err := json.NewDecoder(state.Body).Decode(&s); err != nil {
			t.Fatalf("decode state: %v", err)
		}
		if s.Error != "" {
			t.Fatalf("analysis errored: %s", s.Error)
		}
		if s.CurrentStep == "results" {
			return sessionID
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatal("analysis never completed")
	return ""
}

func TestSaveListLoadAndClearHistory(t *testing.T) {
	app := buildTestApp(t)
	router := app.Router
	sessionID := runAnalysis(t, router)

	saveBody, _ := json.Marshal(map[string]string{"sessionId": sessionID, "name": "tender run"})
	reqSave := httptest.NewRequest(http.MethodPost, "/api/v1/history", bytes.NewReader(saveBody))
	reqSave.Header.Set("Content-Type", "application/json")
	respSave := httptest.NewRecorder()
	router.ServeHTTP(respSave, reqSave)
	if respSave.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d (%s)", respSave.Code, respSave.Body.String())
	}
	var saved struct {
		ID       string  `json:"id"`
		Name     string  `json:"name"`
		KPCount  int     `json:"kpCount"`
		AvgScore float64 `json:"avgScore"`
		TZName   string  `json:"tzName"`
	}
	if err := json.NewDecoder(respSave.Body).Decode(&saved); err != nil {
		t.Fatalf("decode saved: %v", err)
	}
	if saved.ID == "" || saved.Name != "tender run" || saved.KPCount != 1 || saved.AvgScore != 85 {
		t.Fatalf("unexpected saved item: %+v", saved)
	}
	if saved.TZName != "spec.txt" {
		t.Fatalf("expected tzName spec.txt, got %q", saved.TZName)
	}

	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	if respList.Code != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", respList.Code)
	}
	var items []map[string]any
	if err := json.NewDecoder(respList.Body).Decode(&items); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}

	respGet := httptest.NewRecorder()
	router.ServeHTTP(respGet, httptest.NewRequest(http.MethodGet, "/api/v1/history/"+saved.ID, nil))
	if respGet.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", respGet.Code)
	}

	respMissing := httptest.NewRecorder()
	router.ServeHTTP(respMissing, httptest.NewRequest(http.MethodGet, "/api/v1/history/nope", nil))
	if respMissing.Code != http.StatusNotFound {
		t.Fatalf("missing id: expected 404, got %d", respMissing.Code)
	}

	respClear := httptest.NewRecorder()
	router.ServeHTTP(respClear, httptest.NewRequest(http.MethodDelete, "/api/v1/history", nil))
	if respClear.Code != http.StatusNoContent {
		t.Fatalf("clear: expected 204, got %d", respClear.Code)
	}

	respAfter := httptest.NewRecorder()
	router.ServeHTTP(respAfter, httptest.NewRequest(http.MethodGet, "/api/v1/history", nil))
	var after []map[string]any
	if err := json.NewDecoder(respAfter.Body).Decode(&after); err != nil {
		t.Fatalf("decode after: %v", err)
	}
	if len(after) != 0 {
		t.Fatalf("expected empty history after clear, got %d", len(after))
	}
}

func TestSaveHistoryRejectsUnknownSession(t *testing.T) {
	app := buildTestApp(t)

	body, _ := json.Marshal(map[string]string{"sessionId": "nope"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/history", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d (%s)", resp.Code, resp.Body.String())
	}
}
