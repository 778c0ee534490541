package citation

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xxxsen/docask/internal/model"
)

func TestExtractNoDelimiter(t *testing.T) {
	clean, citations := Extract("Rome is the capital of Italy.")
	require.Equal(t, "Rome is the capital of Italy.", clean)
	require.Empty(t, citations)
}

func TestExtractSingleCitation(t *testing.T) {
	raw := "Rome is the capital of Italy.\n【<citation document-id=\"doc-1\" chunk-id=\"chunk-9\" filename=\"italy.pdf\" page-number=\"3\" index-on-page=\"2\">capital of Italy</citation>】"
	clean, citations := Extract(raw)

	require.Equal(t, "Rome is the capital of Italy.", clean)
	require.Len(t, citations, 1)
	cite := citations[0]
	require.Equal(t, "doc-1", cite.DocumentID)
	require.Equal(t, "chunk-9", cite.ChunkID)
	require.Equal(t, "italy.pdf", cite.FileName)
	require.NotNil(t, cite.PageNumber)
	require.Equal(t, 3, *cite.PageNumber)
	require.Equal(t, 2, cite.IndexOnPage)
	require.Equal(t, "capital of Italy", cite.Quote)
}

func TestExtractUnterminatedBlockRunsToEnd(t *testing.T) {
	raw := "Answer text.\n【<citation document-id=\"d\" chunk-id=\"c\" filename=\"f.txt\">quote</citation>"
	clean, citations := Extract(raw)

	require.Equal(t, "Answer text.", clean)
	require.Len(t, citations, 1)
	require.Equal(t, "f.txt", citations[0].FileName)
}

func TestExtractSortsByFileNameThenPage(t *testing.T) {
	raw := "x【" +
		"<citation filename=\"zeta.pdf\" page-number=\"1\">a</citation>" +
		"<citation filename=\"alpha.pdf\" page-number=\"7\">b</citation>" +
		"<citation filename=\"alpha.pdf\" page-number=\"2\">c</citation>" +
		"】"
	_, citations := Extract(raw)

	require.Len(t, citations, 3)
	require.Equal(t, "alpha.pdf", citations[0].FileName)
	require.Equal(t, 2, *citations[0].PageNumber)
	require.Equal(t, "alpha.pdf", citations[1].FileName)
	require.Equal(t, 7, *citations[1].PageNumber)
	require.Equal(t, "zeta.pdf", citations[2].FileName)
}

func TestExtractInvalidPageNumberIgnored(t *testing.T) {
	tests := []struct {
		name string
		page string
	}{
		{name: "not a number", page: "three"},
		{name: "zero", page: "0"},
		{name: "negative", page: "-4"},
		{name: "empty", page: ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "x【<citation filename=\"f\" page-number=\"" + tt.page + "\">q</citation>】"
			_, citations := Extract(raw)
			require.Len(t, citations, 1)
			require.Nil(t, citations[0].PageNumber)
		})
	}
}

func TestExtractMalformedTagsSkipped(t *testing.T) {
	raw := "answer【<citation no-quote-end <citation filename=\"ok.txt\">fine</citation>】"
	_, citations := Extract(raw)
	require.Equal(t, []model.Citation{{FileName: "ok.txt", Quote: "fine"}}, citations)
}

func TestExtractKeepsTextAfterBlock(t *testing.T) {
	clean, citations := Extract("before【<citation filename=\"f\">q</citation>】after")
	require.Equal(t, "beforeafter", clean)
	require.Len(t, citations, 1)
}

func TestExtractStripsEveryBlock(t *testing.T) {
	raw := "first【<citation filename=\"a.txt\">q1</citation>】 second【<citation filename=\"b.txt\">q2</citation>】"
	clean, citations := Extract(raw)

	require.Equal(t, "first second", clean)
	require.Len(t, citations, 2)
	require.Equal(t, "a.txt", citations[0].FileName)
	require.Equal(t, "b.txt", citations[1].FileName)
}

func TestScanAttributes(t *testing.T) {
	attrs := scanAttributes(` document-id="a" chunk-id="b"  filename="with spaces.pdf"`)
	require.Equal(t, map[string]string{
		"document-id": "a",
		"chunk-id":    "b",
		"filename":    "with spaces.pdf",
	}, attrs)
}

func TestScanAttributesUnclosedValue(t *testing.T) {
	attrs := scanAttributes(`filename="good.txt" broken="never ends`)
	require.Equal(t, map[string]string{"filename": "good.txt"}, attrs)
}
