package checkpoint

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, raw string, batch int) *Checkpoint {
	t.Helper()
	cp, err := Normalize(json.RawMessage(raw), batch)
	require.NoError(t, err)
	return cp
}

func TestNormalizeCanonical(t *testing.T) {
	cp := mustNormalize(t, `{
		"batch_num": 99,
		"validated": {"keck-q123": "https://img.example/keck.jpg", "lick-q456": null},
		"websites_found": {"keck-q123": "https://keck.example"},
		"rejection_notes": {"lick-q456": "broken image"}
	}`, 3)

	// The caller-supplied batch number always wins.
	assert.Equal(t, 3, cp.BatchNum)
	require.Contains(t, cp.Validated, "keck-q123")
	require.NotNil(t, cp.Validated["keck-q123"])
	assert.Equal(t, "https://img.example/keck.jpg", *cp.Validated["keck-q123"])
	assert.Nil(t, cp.Validated["lick-q456"])
	assert.Equal(t, "https://keck.example", cp.WebsitesFound["keck-q123"])
	assert.Equal(t, "broken image", cp.RejectionNotes["lick-q456"])
}

func TestNormalizeResultsList(t *testing.T) {
	cp := mustNormalize(t, `{
		"batch_num": 2,
		"results": [
			{"slug": "keck-q123", "final_url": "https://img.example/keck.jpg"},
			{"slug": "palomar-q789", "url": "https://img.example/palomar.jpg"},
			{"slug": "lick-q456", "image_url": "https://img.example/lick.jpg",
			 "accepted": false, "rejection_reason": "watermarked",
			 "type_metadata": {"website": "https://lick.example"}},
			{"final_url": "https://img.example/orphan.jpg"}
		]
	}`, 2)

	require.Len(t, cp.Validated, 3, "records without a slug are dropped")
	assert.Equal(t, "https://img.example/keck.jpg", *cp.Validated["keck-q123"])
	assert.Equal(t, "https://img.example/palomar.jpg", *cp.Validated["palomar-q789"])
	assert.Nil(t, cp.Validated["lick-q456"])
	assert.Equal(t, "watermarked", cp.RejectionNotes["lick-q456"])
	assert.Equal(t, "https://lick.example", cp.WebsitesFound["lick-q456"])
}

func TestNormalizeBareArray(t *testing.T) {
	cp := mustNormalize(t, `[
		{"slug": "keck-q123", "image_url": "https://img.example/keck.jpg", "image_status": "accepted"},
		{"slug": "lick-q456", "image_url": "https://img.example/lick.jpg", "image_status": "rejected", "reason": "too small"},
		{"slug": "palomar-q789", "image_url": "https://img.example/palomar.jpg"}
	]`, 5)

	assert.Equal(t, 5, cp.BatchNum)
	assert.Equal(t, "https://img.example/keck.jpg", *cp.Validated["keck-q123"])
	assert.Nil(t, cp.Validated["lick-q456"])
	assert.Equal(t, "too small", cp.RejectionNotes["lick-q456"])
	// No explicit status plus a URL counts as accepted.
	assert.Equal(t, "https://img.example/palomar.jpg", *cp.Validated["palomar-q789"])
}

func TestNormalizeEquivalentShapesAgree(t *testing.T) {
	canonical := mustNormalize(t, `{
		"batch_num": 1,
		"validated": {"keck-q123": "https://img.example/keck.jpg", "lick-q456": null},
		"websites_found": {},
		"rejection_notes": {"lick-q456": "watermarked"}
	}`, 1)

	fromArray := mustNormalize(t, `[
		{"slug": "keck-q123", "image_url": "https://img.example/keck.jpg", "image_status": "accepted"},
		{"slug": "lick-q456", "image_status": "rejected", "reason": "watermarked"}
	]`, 1)

	a, err := json.MarshalIndent(canonical, "", "  ")
	require.NoError(t, err)
	b, err := json.MarshalIndent(fromArray, "", "  ")
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestNormalizeRejectsUnknownShape(t *testing.T) {
	_, err := Normalize(json.RawMessage(`{"observatories": [], "count": 0}`), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unrecognized checkpoint format")

	_, err = Normalize(json.RawMessage(`"just a string"`), 1)
	require.Error(t, err)
}

func TestNormalizeFileRewritesInPlace(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint_batch2.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
		{"slug": "keck-q123", "image_url": "https://img.example/keck.jpg", "image_status": "accepted"}
	]`), 0o644))

	cp, err := NormalizeFile(path, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, cp.BatchNum)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var reread Checkpoint
	require.NoError(t, json.Unmarshal(raw, &reread))
	assert.Equal(t, 2, reread.BatchNum)
	require.NotNil(t, reread.Validated["keck-q123"])
	assert.Equal(t, "https://img.example/keck.jpg", *reread.Validated["keck-q123"])
}
