package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/gabriel-vasile/mimetype"
)

var (
	ErrUnsupportedType = errors.New("attachment type not allowed")
	ErrTooLarge        = errors.New("attachment too large")
	ErrEmpty           = errors.New("attachment is empty")
)

// sniffLen is how much of the file is read to detect its type.
const sniffLen = 3072

var allowedTypes = []string{
	"image/jpeg",
	"image/png",
	"image/gif",
	"image/webp",
	"application/pdf",
	"video/mp4",
}

// Attachment is an uploaded file as received from the client.
type Attachment struct {
	Filename string
	Size     int64
	Body     io.Reader
}

// Prepared is an attachment whose type has been verified from its content.
type Prepared struct {
	ContentType string
	Extension   string
	Body        io.Reader
}

// Prepare sniffs the attachment's content type, enforces the allow-list and
// the size cap, and returns a reader that yields the whole file.
func Prepare(a Attachment, maxBytes int64) (Prepared, error) {
	if a.Size > maxBytes {
		return Prepared{}, fmt.Errorf("%w: %d bytes exceeds %d", ErrTooLarge, a.Size, maxBytes)
	}

	head := make([]byte, sniffLen)
	n, err := io.ReadFull(a.Body, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return Prepared{}, fmt.Errorf("read attachment: %w", err)
	}
	if n == 0 {
		return Prepared{}, ErrEmpty
	}
	head = head[:n]

	mtype := mimetype.Detect(head)
	if !mimetype.EqualsAny(mtype.String(), allowedTypes...) {
		return Prepared{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	body := io.MultiReader(bytes.NewReader(head), a.Body)
	// the declared size may be absent; cap what is actually streamed
	body = &capReader{r: body, remaining: maxBytes}

	return Prepared{ContentType: mtype.String(), Extension: mtype.Extension(), Body: body}, nil
}

type capReader struct {
	r         io.Reader
	remaining int64
}

func (c *capReader) Read(p []byte) (int, error) {
	if c.remaining <= 0 {
		// read one more byte so an exact-size file still reads EOF
		var extra [1]byte
		n, err := c.r.Read(extra[:])
		if n > 0 {
			return 0, ErrTooLarge
		}
		return 0, err
	}
	if int64(len(p)) > c.remaining {
		p = p[:c.remaining]
	}
	n, err := c.r.Read(p)
	c.remaining -= int64(n)
	return n, err
}
