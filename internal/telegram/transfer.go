package telegram

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"clipd/internal/logging"
	"clipd/internal/media"
	"clipd/internal/progress"
)

// Download fetches the media behind ref into destPath, reporting byte-level
// progress as it streams.
func (c *Client) Download(ctx context.Context, ref media.SourceRef, destPath string, onProgress progress.Func) error {
	file, err := c.getFile(ctx, ref.FileID)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.fileURL(file.FilePath), nil)
	if err != nil {
		return fmt.Errorf("build download request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download file: unexpected status %s", resp.Status)
	}

	total := resp.ContentLength
	if total <= 0 {
		total = file.FileSize
	}

	dest, err := os.Create(destPath)
	if err != nil {
		return fmt.Errorf("create download target: %w", err)
	}
	defer dest.Close()

	reader := io.Reader(resp.Body)
	if onProgress != nil {
		reader = &countingReader{reader: resp.Body, total: total, onProgress: onProgress}
	}
	if _, err := io.Copy(dest, reader); err != nil {
		return fmt.Errorf("write download target: %w", err)
	}
	if err := dest.Sync(); err != nil {
		return fmt.Errorf("sync download target: %w", err)
	}

	c.logger.Debug("file downloaded",
		logging.String("file_id", ref.FileID),
		logging.Int64("bytes", total),
	)
	return nil
}

// SendVideo uploads the file at path as a video message with the given
// caption, reporting byte-level progress as the body streams.
func (c *Client) SendVideo(ctx context.Context, chatID int64, path, caption string, onProgress progress.Func) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat upload source: %w", err)
	}

	source, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open upload source: %w", err)
	}
	defer source.Close()

	reader := io.Reader(source)
	if onProgress != nil {
		reader = &countingReader{reader: source, total: info.Size(), onProgress: onProgress}
	}

	pipeReader, pipeWriter := io.Pipe()
	form := multipart.NewWriter(pipeWriter)
	go func() {
		err := writeVideoForm(form, chatID, caption, filepath.Base(path), reader)
		if closeErr := form.Close(); err == nil {
			err = closeErr
		}
		pipeWriter.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.methodURL("sendVideo"), pipeReader)
	if err != nil {
		return fmt.Errorf("build sendVideo request: %w", err)
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("call sendVideo: %w", err)
	}
	defer resp.Body.Close()

	if err := decodeResponse("sendVideo", resp.Body, nil); err != nil {
		return err
	}

	c.logger.Debug("video uploaded",
		logging.Int64("chat_id", chatID),
		logging.Int64("bytes", info.Size()),
	)
	return nil
}

func writeVideoForm(form *multipart.Writer, chatID int64, caption, fileName string, content io.Reader) error {
	if err := form.WriteField("chat_id", strconv.FormatInt(chatID, 10)); err != nil {
		return err
	}
	if caption != "" {
		if err := form.WriteField("caption", caption); err != nil {
			return err
		}
	}
	part, err := form.CreateFormFile("video", fileName)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

// countingReader reports cumulative bytes read against a known total.
type countingReader struct {
	reader     io.Reader
	total      int64
	done       int64
	onProgress progress.Func
}

func (r *countingReader) Read(p []byte) (int, error) {
	n, err := r.reader.Read(p)
	if n > 0 {
		r.done += int64(n)
		r.onProgress(r.done, r.total)
	}
	return n, err
}
