package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/autobrr/dupescan/pkg/dedupe"
	"github.com/autobrr/dupescan/pkg/filerecord"
	"github.com/autobrr/dupescan/pkg/scanerr"
)

var day = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func sampleClusters() []dedupe.Cluster {
	return []dedupe.Cluster{
		{
			Kind:   dedupe.KindContent,
			Size:   2048,
			Digest: "abc123",
			Members: []filerecord.FileRecord{
				{Path: "/data/a", Size: 2048, Modified: day},
				{Path: "/data/b", Size: 2048, Modified: day.AddDate(0, 0, 1)},
			},
		},
		{
			Kind:   dedupe.KindHardlink,
			Size:   10,
			Digest: "1:7",
			Members: []filerecord.FileRecord{
				{Path: "/data/x", Size: 10, Modified: day},
				{Path: "/data/y", Size: 10, Modified: day},
			},
		},
	}
}

func TestWrite_CSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, sampleClusters(), Options{Unit: UnitBytes}))

	want := strings.Join([]string{
		"cluster,kind,size,path,date,digest",
		"1,content,2048,/data/a,2024-03-09,abc123",
		"1,content,2048,/data/b,2024-03-10,abc123",
		"2,hardlink,10,/data/x,2024-03-09,1:7",
		"2,hardlink,10,/data/y,2024-03-09,1:7",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWrite_TSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatTSV, sampleClusters(), Options{Unit: UnitKiB}))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5)
	assert.Equal(t, "1\tcontent\t2.000K\t/data/a\t2024-03-09\tabc123", lines[1])
}

func TestWrite_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatJSON, sampleClusters(), Options{Unit: UnitAuto}))

	var doc document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Clusters, 2)
	assert.Equal(t, "2.0 KiB", doc.Clusters[0].Size)
	assert.Equal(t, "2.0 KiB", doc.Clusters[0].Reclaimable)
	assert.Equal(t, "2024-03-09", doc.Clusters[0].Date)
	assert.Equal(t, []string{"/data/x", "/data/y"}, doc.Clusters[1].Members)
	assert.Equal(t, "0 B", doc.Clusters[1].Reclaimable)
}

func TestWrite_YAML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatYAML, sampleClusters(), Options{Unit: UnitBytes}))

	var doc document
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &doc))
	require.Len(t, doc.Clusters, 2)
	assert.Equal(t, "content", doc.Clusters[0].Kind)
	assert.Equal(t, "2048", doc.Clusters[0].Size)
}

func TestWrite_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatText, sampleClusters(), Options{Unit: UnitBytes}))

	out := buf.String()
	assert.Contains(t, out, "#1 content 2048 x2  abc123\n")
	assert.Contains(t, out, "  2024-03-10   /data/b\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestWrite_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, FormatCSV, nil, Options{}))
	assert.Equal(t, "cluster,kind,size,path,date,digest\n", buf.String())
}

func TestWriteFile_ExtensionInference(t *testing.T) {
	dir := t.TempDir()

	path, err := WriteFile(filepath.Join(dir, "out", "dupes"), FormatJSON, sampleClusters(), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "dupes.json"), path)
	assert.FileExists(t, path)

	path, err = WriteFile(filepath.Join(dir, "report.dat"), FormatCSV, sampleClusters(), Options{})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "report.dat"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "cluster,"))
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"CSV": FormatCSV, "tsv": FormatTSV, "yml": FormatYAML, " text ": FormatText} {
		got, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseFormat("xlsx")
	assert.True(t, errors.Is(err, scanerr.ErrConfiguration))
}

func TestUnit_FormatSize(t *testing.T) {
	tests := []struct {
		unit Unit
		size int64
		want string
	}{
		{UnitBytes, 1536, "1536"},
		{UnitKiB, 1536, "1.500K"},
		{UnitMiB, 3 << 20, "3.000M"},
		{UnitGiB, 1 << 29, "0.500G"},
		{UnitAuto, 1536, "1.5 KiB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.unit.FormatSize(tt.size), string(tt.unit))
	}

	u, err := ParseUnit("m")
	require.NoError(t, err)
	assert.Equal(t, UnitMiB, u)

	_, err = ParseUnit("T")
	assert.True(t, errors.Is(err, scanerr.ErrConfiguration))
}
