package frontend

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"irisapi/client"
	"irisapi/config"
)

func stubAPI(t *testing.T, predictBody string, predictStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"status":"ok","message":"service healthy","model_loaded":true,"version":"1.0.0","n_features":4,"class_names":["setosa","versicolor","virginica"],"test_accuracy":0.9667}`)
	})
	mux.HandleFunc("POST /predict", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(predictStatus)
		io.WriteString(w, predictBody)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func newServer(t *testing.T, apiURL string) *Server {
	t.Helper()
	s, err := New(config.FrontendConfig{APIURL: apiURL, Locale: "en", RequestTimeout: time.Second}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return s
}

func submit(t *testing.T, s *Server, form url.Values) string {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	return rr.Body.String()
}

func featureForm(apiURL, action string, features ...string) url.Values {
	form := url.Values{"api_url": {apiURL}, "action": {action}}
	for i, f := range features {
		form.Set("f"+string(rune('0'+i)), f)
	}
	return form
}

func TestIndexRendersPresetDefaults(t *testing.T) {
	s := newServer(t, "http://127.0.0.1:5002")
	rr := httptest.NewRecorder()
	s.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	body := rr.Body.String()
	for _, want := range []string{"Iris Classifier", `value="5.1"`, `value="http://127.0.0.1:5002"`, "Virginica"} {
		if !strings.Contains(body, want) {
			t.Fatalf("page should contain %q", want)
		}
	}
}

func TestPresetFillsFeatures(t *testing.T) {
	s := newServer(t, "http://127.0.0.1:5002")
	body := submit(t, s, featureForm("http://example.invalid", "preset:virginica", "1", "1", "1", "1"))
	for _, want := range []string{`value="6.7"`, `value="5.2"`, `value="2.3"`, `value="http://example.invalid"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page should contain %q", want)
		}
	}
}

func TestPredictShowsSortedProbabilities(t *testing.T) {
	api := stubAPI(t, `{"status":"success","prediction":"versicolor","prediction_index":1,"probabilities":{"setosa":"0.100","versicolor":"0.726","virginica":"0.174"}}`, http.StatusOK)
	s := newServer(t, api.URL)

	body := submit(t, s, featureForm(api.URL, "predict", "5.9", "3.0", "4.2", "1.5"))
	if !strings.Contains(body, "Prediction: versicolor") {
		t.Fatalf("expected prediction in page:\n%s", body)
	}
	iVers := strings.Index(body, "<td>versicolor</td>")
	iVirg := strings.Index(body, "<td>virginica</td>")
	iSet := strings.Index(body, "<td>setosa</td>")
	if iVers < 0 || iVirg < 0 || iSet < 0 || !(iVers < iVirg && iVirg < iSet) {
		t.Fatalf("probabilities not sorted descending:\n%s", body)
	}
	if !strings.Contains(body, "%") {
		t.Fatal("probabilities should be shown as percentages")
	}
}

func TestProbabilityRowsFallback(t *testing.T) {
	s := newServer(t, "http://127.0.0.1:5002")
	rows := s.probabilityRows(&client.Prediction{
		Proba:       []float64{0.2, 0.1, 0.7},
		TargetNames: []string{"setosa", "versicolor", "virginica"},
	})
	if len(rows) != 3 || rows[0].Class != "virginica" || rows[2].Class != "versicolor" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestPredictShowsAPIError(t *testing.T) {
	api := stubAPI(t, `{"status":"error","error":"model not available"}`, http.StatusServiceUnavailable)
	s := newServer(t, api.URL)

	body := submit(t, s, featureForm(api.URL, "predict", "5.1", "3.5", "1.4", "0.2"))
	if !strings.Contains(body, "API error (503): model not available") {
		t.Fatalf("expected API error in page:\n%s", body)
	}
}

func TestPredictRejectsNonNumericInput(t *testing.T) {
	s := newServer(t, "http://127.0.0.1:5002")
	body := submit(t, s, featureForm("http://127.0.0.1:5002", "predict", "5.1", "abc", "1.4", "0.2"))
	if !strings.Contains(body, "Sepal width must be a number") {
		t.Fatalf("expected input error in page:\n%s", body)
	}
}

func TestHealthView(t *testing.T) {
	api := stubAPI(t, "", http.StatusOK)
	s := newServer(t, api.URL)

	body := submit(t, s, featureForm(api.URL, "health", "5.1", "3.5", "1.4", "0.2"))
	for _, want := range []string{"Service health", "1.0.0", "setosa, versicolor, virginica", "%"} {
		if !strings.Contains(body, want) {
			t.Fatalf("page should contain %q:\n%s", want, body)
		}
	}
}

func TestConnectionErrorShown(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	dead := srv.URL
	srv.Close()

	s := newServer(t, dead)
	body := submit(t, s, featureForm(dead, "health"))
	if !strings.Contains(body, "Could not reach the API") {
		t.Fatalf("expected connection error in page:\n%s", body)
	}
}

func TestNewRejectsBadLocale(t *testing.T) {
	if _, err := New(config.FrontendConfig{Locale: "not a locale!"}, nil); err == nil {
		t.Fatal("expected error for invalid locale")
	}
}
