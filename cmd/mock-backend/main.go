// Command mock-backend runs a deterministic Chat Completions server
// for development and end-to-end testing. It inspects the prompt and
// returns canned Python code for the matching pipeline stage, so the
// full upload-generate-execute flow can run without a real model.
//
// Configuration:
//
//	MOCK_PORT - Listen port (default: 9090)
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

func main() {
	port := os.Getenv("MOCK_PORT")
	if port == "" {
		port = "9090"
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/chat/completions", handleChatCompletions)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok\n"))
	})

	srv := &http.Server{Addr: ":" + port, Handler: mux}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("mock backend starting", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("mock backend failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("mock backend shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	srv.Shutdown(shutdownCtx)
}

// --- Wire types ---

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Object  string       `json:"object"`
	Model   string       `json:"model"`
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Index        int         `json:"index"`
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// --- Handler ---

func handleChatCompletions(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":{"message":"invalid request","type":"invalid_request_error"}}`, http.StatusBadRequest)
		return
	}

	var prompt string
	for _, msg := range req.Messages {
		if msg.Role == "user" {
			prompt = msg.Content
		}
	}

	stage, code := cannedCode(prompt)
	slog.Info("chat completion", "model", req.Model, "stage", stage, "prompt_len", len(prompt))

	content := "```python\n" + code + "\n```"
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(chatResponse{
		ID:     fmt.Sprintf("chatcmpl-mock-%d", time.Now().UnixNano()),
		Object: "chat.completion",
		Model:  req.Model,
		Choices: []chatChoice{{
			Message:      chatMessage{Role: "assistant", Content: content},
			FinishReason: "stop",
		}},
		Usage: chatUsage{
			PromptTokens:     len(prompt) / 4,
			CompletionTokens: len(content) / 4,
			TotalTokens:      (len(prompt) + len(content)) / 4,
		},
	})
}

// cannedCode picks the stage script matching the prompt.
func cannedCode(prompt string) (stage, code string) {
	lower := strings.ToLower(prompt)
	switch {
	case strings.Contains(lower, "hyperparameter tuning"):
		return "tuning", tuningCode
	case strings.Contains(lower, "model training"):
		return "training", trainingCode
	default:
		return "preprocessing", preprocessCode
	}
}

const preprocessCode = `import pandas as pd
import numpy as np

df = pd.read_csv('uploaded_data.csv')

for col in df.columns:
    if df[col].dtype in ('int64', 'float64'):
        df[col] = df[col].fillna(df[col].median())
    else:
        mode = df[col].mode()
        if len(mode) > 0:
            df[col] = df[col].fillna(mode[0])

df = df.drop_duplicates()

for col in df.select_dtypes(include='object').columns:
    if df[col].nunique() <= 20:
        df[col] = df[col].astype('category').cat.codes

cleaned_data = df
cleaned_data.to_csv('cleaned_data.csv', index=False)
print(f"Preprocessing complete: {len(cleaned_data)} rows, {len(cleaned_data.columns)} columns")`

const trainingCode = `import json
import joblib
import pandas as pd
from sklearn.model_selection import train_test_split
from sklearn.ensemble import RandomForestClassifier
from sklearn.linear_model import LogisticRegression
from sklearn.metrics import accuracy_score

df = pd.read_csv('cleaned_data.csv')
X = df.iloc[:, :-1]
y = df.iloc[:, -1]

X_train, X_test, y_train, y_test = train_test_split(X, y, test_size=0.2, random_state=42)

models = {
    'random_forest': RandomForestClassifier(n_estimators=100, random_state=42),
    'logistic_regression': LogisticRegression(max_iter=1000),
}

model_results = {}
for name, model in models.items():
    model.fit(X_train, y_train)
    accuracy = accuracy_score(y_test, model.predict(X_test))
    joblib.dump(model, f'{name}.pkl')
    model_results[name] = {'accuracy': accuracy, 'model_file': f'{name}.pkl'}
    print(f"{name}: accuracy={accuracy:.4f}")

with open('model_results.json', 'w') as f:
    json.dump(model_results, f, indent=2)`

const tuningCode = `import json
import joblib
import pandas as pd
from sklearn.model_selection import train_test_split, GridSearchCV
from sklearn.ensemble import RandomForestClassifier
from sklearn.metrics import accuracy_score

df = pd.read_csv('cleaned_data.csv')
X = df.iloc[:, :-1]
y = df.iloc[:, -1]

X_train, X_test, y_train, y_test = train_test_split(X, y, test_size=0.2, random_state=42)

param_grid = {'n_estimators': [50, 100], 'max_depth': [None, 10]}
search = GridSearchCV(RandomForestClassifier(random_state=42), param_grid, cv=3)
search.fit(X_train, y_train)

best = search.best_estimator_
accuracy = accuracy_score(y_test, best.predict(X_test))
joblib.dump(best, 'random_forest_tuned.pkl')
print(f"random_forest tuned: accuracy={accuracy:.4f} params={search.best_params_}")

tuning_results = {
    'random_forest': {
        'accuracy': accuracy,
        'best_params': search.best_params_,
        'model_file': 'random_forest_tuned.pkl',
    }
}
with open('tuning_results.json', 'w') as f:
    json.dump(tuning_results, f, indent=2)`
