package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"clipd/internal/logging"
	"clipd/internal/media"
)

const testToken = "12345:testtoken"

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New(testToken, server.URL, logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func writeResult(t *testing.T, w http.ResponseWriter, result any) {
	t.Helper()
	raw, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": json.RawMessage(raw)})
}

func TestGetUpdates(t *testing.T) {
	var gotPath string
	var gotParams map[string]any
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		writeResult(t, w, []Update{
			{
				UpdateID: 101,
				Message: &Message{
					MessageID: 7,
					From:      &User{ID: 42},
					Chat:      Chat{ID: 42, Type: "private"},
					Text:      "0:30",
				},
			},
		})
	}))

	updates, err := client.GetUpdates(context.Background(), 100, 50*time.Second)
	if err != nil {
		t.Fatalf("GetUpdates: %v", err)
	}

	if gotPath != "/bot"+testToken+"/getUpdates" {
		t.Errorf("path = %q", gotPath)
	}
	if gotParams["offset"] != float64(100) || gotParams["timeout"] != float64(50) {
		t.Errorf("params = %v", gotParams)
	}
	if len(updates) != 1 || updates[0].UpdateID != 101 {
		t.Fatalf("updates = %+v", updates)
	}
	if updates[0].Message.Text != "0:30" || updates[0].Message.From.ID != 42 {
		t.Errorf("message = %+v", updates[0].Message)
	}
}

func TestSendMessage(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var params map[string]any
		_ = json.NewDecoder(r.Body).Decode(&params)
		if params["text"] != "hello" {
			t.Errorf("text = %v", params["text"])
		}
		writeResult(t, w, Message{MessageID: 55})
	}))

	id, err := client.SendMessage(context.Background(), 42, "hello")
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if id != 55 {
		t.Errorf("message id = %d, want 55", id)
	}
}

func TestAPIErrorSurfaced(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  403,
			"description": "Forbidden: bot was blocked by the user",
		})
	}))

	_, err := client.SendMessage(context.Background(), 42, "hello")
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Code != 403 {
		t.Errorf("code = %d, want 403", apiErr.Code)
	}
}

func TestEditMessageNotModifiedTolerated(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"ok":          false,
			"error_code":  400,
			"description": "Bad Request: message is not modified",
		})
	}))

	if err := client.EditMessage(context.Background(), 42, 55, "same text"); err != nil {
		t.Fatalf("EditMessage: %v", err)
	}
}

func TestDownload(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.HasSuffix(r.URL.Path, "/getFile"):
			writeResult(t, w, File{FileID: "file-1", FileSize: int64(len(payload)), FilePath: "videos/file_1.mp4"})
		case r.URL.Path == "/file/bot"+testToken+"/videos/file_1.mp4":
			_, _ = io.WriteString(w, payload)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
			http.NotFound(w, r)
		}
	}))

	destPath := filepath.Join(t.TempDir(), "input.mp4")
	var lastDone, lastTotal int64
	err := client.Download(context.Background(), media.SourceRef{FileID: "file-1"}, destPath, func(done, total int64) {
		lastDone, lastTotal = done, total
	})
	if err != nil {
		t.Fatalf("Download: %v", err)
	}

	data, err := os.ReadFile(destPath)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if len(data) != len(payload) {
		t.Errorf("downloaded %d bytes, want %d", len(data), len(payload))
	}
	if lastDone != int64(len(payload)) || lastTotal != int64(len(payload)) {
		t.Errorf("final progress = %d/%d, want %d/%d", lastDone, lastTotal, len(payload), len(payload))
	}
}

func TestSendVideo(t *testing.T) {
	var gotChatID, gotCaption, gotFileName string
	var gotBytes int
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/sendVideo") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		gotChatID = r.FormValue("chat_id")
		gotCaption = r.FormValue("caption")
		file, header, err := r.FormFile("video")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer file.Close()
		gotFileName = header.Filename
		data, _ := io.ReadAll(file)
		gotBytes = len(data)
		writeResult(t, w, Message{MessageID: 77})
	}))

	path := filepath.Join(t.TempDir(), "output.mp4")
	if err := os.WriteFile(path, []byte("trimmed clip bytes"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	var progressCalls int
	err := client.SendVideo(context.Background(), 42, path, "caption text", func(done, total int64) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("SendVideo: %v", err)
	}

	if gotChatID != "42" {
		t.Errorf("chat_id = %q, want 42", gotChatID)
	}
	if gotCaption != "caption text" {
		t.Errorf("caption = %q", gotCaption)
	}
	if gotFileName != "output.mp4" {
		t.Errorf("file name = %q, want output.mp4", gotFileName)
	}
	if gotBytes != len("trimmed clip bytes") {
		t.Errorf("uploaded %d bytes, want %d", gotBytes, len("trimmed clip bytes"))
	}
	if progressCalls == 0 {
		t.Error("expected at least one progress callback")
	}
}

func TestSendVideoMissingFile(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))

	err := client.SendVideo(context.Background(), 42, filepath.Join(t.TempDir(), "missing.mp4"), "", nil)
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAttachment(t *testing.T) {
	tests := []struct {
		name     string
		msg      *Message
		wantOK   bool
		wantFile string
		wantVid  bool
	}{
		{
			name: "native video",
			msg: &Message{
				MessageID: 3,
				Chat:      Chat{ID: 10},
				Video:     &Video{FileID: "v1", FileName: "holiday.mp4", MimeType: "video/mp4", FileSize: 100, Duration: 30},
			},
			wantOK:   true,
			wantFile: "holiday.mp4",
			wantVid:  true,
		},
		{
			name: "document",
			msg: &Message{
				MessageID: 3,
				Chat:      Chat{ID: 10},
				Document:  &Document{FileID: "d1", FileName: "clip.mkv", MimeType: "application/octet-stream", FileSize: 100},
			},
			wantOK:   true,
			wantFile: "clip.mkv",
		},
		{
			name:   "plain text",
			msg:    &Message{MessageID: 3, Chat: Chat{ID: 10}, Text: "hi"},
			wantOK: false,
		},
		{
			name:   "nil message",
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, ok := Attachment(tt.msg)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if info.FileName != tt.wantFile {
				t.Errorf("file name = %q, want %q", info.FileName, tt.wantFile)
			}
			if info.Video != tt.wantVid {
				t.Errorf("video = %v, want %v", info.Video, tt.wantVid)
			}
			if info.Ref.ChatID != 10 || info.Ref.MessageID != 3 {
				t.Errorf("ref = %+v", info.Ref)
			}
		})
	}
}

func TestMethodURLContainsToken(t *testing.T) {
	client, err := New(testToken, "https://example.com/", logging.NewNop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	want := fmt.Sprintf("https://example.com/bot%s/getUpdates", testToken)
	if got := client.methodURL("getUpdates"); got != want {
		t.Errorf("methodURL = %q, want %q", got, want)
	}
}
