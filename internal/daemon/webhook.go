package daemon

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jdries/docpages/internal/logfields"
)

// pushPayload is the subset of a forge push event the daemon cares about.
type pushPayload struct {
	Ref        string `json:"ref"` // refs/heads/<branch>
	After      string `json:"after"`
	Repository struct {
		FullName string `json:"full_name"`
	} `json:"repository"`
}

// handleWebhook accepts push events and enqueues a publish when the pushed
// branch matches the configured source branch. Events for other branches are
// acknowledged with 204 so the forge does not retry them.
func (d *Daemon) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}

	secret := d.webhookSecret()
	if secret != "" && !verifySignature(r.Header.Get("X-Hub-Signature-256"), body, secret) {
		slog.Warn("Webhook signature verification failed", logfields.RemoteAddr(r.RemoteAddr))
		http.Error(w, "invalid signature", http.StatusUnauthorized)
		return
	}

	if event := r.Header.Get("X-GitHub-Event"); event != "" && event != "push" {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	var payload pushPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid payload", http.StatusBadRequest)
		return
	}

	branch := strings.TrimPrefix(payload.Ref, "refs/heads/")
	if branch != d.config().Source.Branch {
		slog.Debug("Ignoring push for non-source branch",
			logfields.Branch(branch), logfields.Repository(payload.Repository.FullName))
		w.WriteHeader(http.StatusNoContent)
		return
	}

	job := NewJob(TriggerWebhook)
	job.Commit = payload.After
	if err := d.queue.Enqueue(job); err != nil {
		slog.Error("Failed to enqueue webhook publish", logfields.Error(err))
		http.Error(w, "queue full", http.StatusServiceUnavailable)
		return
	}

	slog.Info("Webhook publish enqueued",
		logfields.JobID(job.ID),
		logfields.Repository(payload.Repository.FullName),
		logfields.Branch(branch),
		logfields.Commit(shortCommit(payload.After)))

	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"job_id": job.ID})
}

// verifySignature checks the X-Hub-Signature-256 header against the body.
func verifySignature(signature string, body []byte, secret string) bool {
	if !strings.HasPrefix(signature, "sha256=") {
		return false
	}
	expected := signature[len("sha256="):]
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	calc := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(calc))
}

// signBody produces the signature header value for a payload.
func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return fmt.Sprintf("sha256=%s", hex.EncodeToString(mac.Sum(nil)))
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
