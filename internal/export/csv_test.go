package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"imgmeta/internal/domain"
)

func sampleImages() []domain.Image {
	return []domain.Image{
		{
			ImageID:     "a1",
			UserID:      "u1",
			Filename:    "pic.jpg",
			ContentType: "image/jpeg",
			S3Key:       "images/a1",
			Tags:        domain.Tags{"vacation", "beach, sunny"},
			Description: "Testing upload",
			CreatedAt:   time.Date(2025, 1, 14, 8, 0, 0, 0, time.UTC),
		},
		{
			ImageID:     "b2",
			UserID:      "u1",
			Filename:    "scan.png",
			ContentType: "image/png",
			S3Key:       "images/b2",
			CreatedAt:   time.Date(2025, 1, 13, 8, 0, 0, 0, time.UTC),
		},
	}
}

func TestWriteHeader(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	require.NoError(t, w.WriteHeader())
	w.Flush()
	require.NoError(t, w.Error())

	row, err := csv.NewReader(&buf).Read()
	require.NoError(t, err)

	assert.Len(t, row, 8)
	assert.Equal(t, "Image ID", row[0])
	assert.Equal(t, "Created At", row[7])
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleImages()))

	raw := buf.Bytes()
	require.True(t, bytes.HasPrefix(raw, BOM))

	rows, err := csv.NewReader(bytes.NewReader(raw[len(BOM):])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, Columns, rows[0])
	assert.Equal(t, []string{
		"a1", "u1", "pic.jpg", "image/jpeg", "images/a1",
		"vacation; beach, sunny", "Testing upload", "2025-01-14T08:00:00Z",
	}, rows[1])
	assert.Equal(t, "", rows[2][5])
}

func TestWriteCSV_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes()[len(BOM):])).ReadAll()
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"u1", "u1"},
		{"user@example.com", "user_example_com"},
		{"  spaced  out  ", "spaced_out"},
		{"already-ok_name", "already-ok_name"},
		{"!!!", "images"},
		{"", "images"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeFilename(tt.input))
		})
	}
}

func TestSanitizeFilename_Truncates(t *testing.T) {
	long := bytes.Repeat([]byte("a"), 150)
	assert.Len(t, SanitizeFilename(string(long)), 100)
}

func TestBuildFilename(t *testing.T) {
	now := time.Date(2025, 3, 9, 12, 0, 0, 0, time.UTC)
	assert.Equal(t, "images_u1_2025-03-09.csv", BuildFilename("u1", "csv", now))
	assert.Equal(t, "images_a_b_2025-03-09.xlsx", BuildFilename("a/b", "xlsx", now))
}
