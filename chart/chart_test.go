package chart

import (
	"bytes"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"github.com/YuminosukeSato/nutriclass/dataset"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

func sampleCounts() []dataset.ValueCount {
	return []dataset.ValueCount{
		{Label: "'In Moderation'", Count: 6, Proportion: 0.5},
		{Label: "'Less Often'", Count: 4, Proportion: 1.0 / 3},
		{Label: "'More Often'", Count: 2, Proportion: 1.0 / 6},
	}
}

func TestClassDistributionPNG(t *testing.T) {
	p, err := ClassDistribution(sampleCounts(), WithTitle("class"), WithXLabel("class"))
	if err != nil {
		t.Fatalf("ClassDistribution: %v", err)
	}
	if p.Title.Text != "class" {
		t.Errorf("title = %q", p.Title.Text)
	}

	var buf bytes.Buffer
	if err := WritePNG(p, &buf); err != nil {
		t.Fatalf("WritePNG: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), pngMagic) {
		t.Errorf("output does not start with the PNG signature: % x", buf.Bytes()[:8])
	}
}

func TestSavePNG(t *testing.T) {
	// 4 classes with 3 colours: the fourth bar reuses yellow
	counts := append(sampleCounts(), dataset.ValueCount{Label: "'Never'", Count: 1})
	p, err := ClassDistribution(counts)
	if err != nil {
		t.Fatalf("ClassDistribution: %v", err)
	}

	path := filepath.Join(t.TempDir(), "class_distribution.png")
	if err := SavePNG(p, path); err != nil {
		t.Fatalf("SavePNG: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, pngMagic) {
		t.Error("saved file is not a PNG")
	}
}

func TestClassDistributionErrors(t *testing.T) {
	if _, err := ClassDistribution(nil); err == nil {
		t.Error("expected error for empty counts")
	}
	if _, err := ClassDistribution(sampleCounts(), WithColors()); err == nil {
		t.Error("expected error for empty colour list")
	}
	if _, err := ClassDistribution(sampleCounts(), WithColors(color.Black)); err != nil {
		t.Errorf("single colour should be accepted: %v", err)
	}
}
