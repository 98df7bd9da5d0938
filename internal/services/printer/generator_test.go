package printer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationURL(t *testing.T) {
	got := LocationURL("http://idit.local:3210/", "3f2a-bc")
	assert.Equal(t, "HTTP://IDIT.LOCAL:3210/L/3F2A-BC", got)
}

func TestGenerateLabelsPDF(t *testing.T) {
	labels := make([]Label, 30)
	for i := range labels {
		labels[i] = Label{ID: "id-" + string(rune('a'+i%26)), Name: "Fach", Path: []string{"Halle 204", "Regal A"}}
	}
	pdf, err := GenerateLabelsPDF(DefaultLabelConfig("http://localhost:3210"), labels)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF")))
}

func TestGenerateLabelsPDFRejectsEmpty(t *testing.T) {
	_, err := GenerateLabelsPDF(DefaultLabelConfig("http://localhost"), nil)
	assert.Error(t, err)

	_, err = GenerateLabelsPDF(LabelConfig{}, []Label{{ID: "x", Name: "x"}})
	assert.Error(t, err)
}
