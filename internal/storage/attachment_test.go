package storage

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func TestPrepareAcceptsAllowedTypeAndKeepsWholeBody(t *testing.T) {
	file := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{0x42}, 5000)...)

	prepared, err := Prepare(Attachment{Filename: "photo.png", Size: int64(len(file)), Body: bytes.NewReader(file)}, 1<<20)
	require.NoError(t, err)
	assert.Equal(t, "image/png", prepared.ContentType)
	assert.Equal(t, ".png", prepared.Extension)

	streamed, err := io.ReadAll(prepared.Body)
	require.NoError(t, err)
	assert.Equal(t, file, streamed)
}

func TestPrepareRejectsDisallowedType(t *testing.T) {
	_, err := Prepare(Attachment{Filename: "run.sh", Size: 20, Body: strings.NewReader("#!/bin/sh\necho hi\n")}, 1<<20)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestPrepareRejectsDeclaredOversize(t *testing.T) {
	_, err := Prepare(Attachment{Size: 2048, Body: bytes.NewReader(pngHeader)}, 1024)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPrepareRejectsStreamBeyondCap(t *testing.T) {
	file := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 4096)...)

	prepared, err := Prepare(Attachment{Body: bytes.NewReader(file)}, 4000)
	require.NoError(t, err)
	_, err = io.ReadAll(prepared.Body)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestPrepareExactCapReadsCleanly(t *testing.T) {
	file := append(append([]byte{}, pngHeader...), bytes.Repeat([]byte{1}, 100)...)

	prepared, err := Prepare(Attachment{Body: bytes.NewReader(file)}, int64(len(file)))
	require.NoError(t, err)
	out, err := io.ReadAll(prepared.Body)
	require.NoError(t, err)
	assert.Len(t, out, len(file))
}

func TestPrepareRejectsEmpty(t *testing.T) {
	_, err := Prepare(Attachment{Body: bytes.NewReader(nil)}, 1024)
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestObjectFromURL(t *testing.T) {
	g := &GCS{bucketName: "chat-media"}

	name, err := g.objectFromURL("https://storage.googleapis.com/chat-media/attachments/r1/abc.png")
	require.NoError(t, err)
	assert.Equal(t, "attachments/r1/abc.png", name)

	_, err = g.objectFromURL("https://storage.googleapis.com/other/attachments/abc.png")
	assert.Error(t, err)
	_, err = g.objectFromURL("https://cdn.example.com/x.png")
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	name := objectName("/attachments/r1/", ".pdf")
	assert.True(t, strings.HasPrefix(name, "attachments/r1/"))
	assert.True(t, strings.HasSuffix(name, ".pdf"))
}
