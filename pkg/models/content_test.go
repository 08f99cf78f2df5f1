package models

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestGenerationParameters_ScanValue(t *testing.T) {
	params := GenerationParameters{
		Prompt:      "Launch of our new coffee blend",
		Provider:    "openai",
		Platform:    PlatformInstagram,
		ContentType: ContentTypeImage,
		Error:       &UnitError{Kind: "timeout", Detail: "still processing"},
	}

	v, err := params.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}

	var decoded GenerationParameters
	if err := decoded.Scan(v); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}

	if decoded.Version != GenerationParametersVersion {
		t.Errorf("expected version %d to be stamped, got %d", GenerationParametersVersion, decoded.Version)
	}
	if decoded.Error == nil || decoded.Error.Kind != "timeout" {
		t.Errorf("expected error kind timeout, got %+v", decoded.Error)
	}
}

func TestGenerationParameters_ScanLegacyRow(t *testing.T) {
	// Rows written before versioning carry no version field.
	var p GenerationParameters
	if err := p.Scan([]byte(`{"prompt":"hello","platform":"twitter","content_type":"text"}`)); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if p.Version != GenerationParametersVersion {
		t.Errorf("expected legacy row to read as version %d, got %d", GenerationParametersVersion, p.Version)
	}
	if p.Platform != PlatformTwitter {
		t.Errorf("expected twitter, got %s", p.Platform)
	}
}

func TestGenerationParameters_ScanRejectsUnknownType(t *testing.T) {
	var p GenerationParameters
	if err := p.Scan(42); err == nil {
		t.Error("expected error scanning an int")
	}
}

func TestNewErrorContent(t *testing.T) {
	projectID := uuid.New()
	row := NewErrorContent(projectID, PlatformLinkedIn, ContentTypeVideo, "business",
		GenerationParameters{Prompt: "quarterly results", Provider: "runway"}, "timeout", "video still processing")

	if !row.IsError() {
		t.Error("expected error row")
	}
	if row.QualityScore != 0 {
		t.Errorf("expected quality 0, got %v", row.QualityScore)
	}
	if row.ProjectID != projectID {
		t.Errorf("expected project id %s, got %s", projectID, row.ProjectID)
	}
	if !strings.Contains(row.GeneratedText, "video still processing") {
		t.Errorf("expected error text in generated text, got %q", row.GeneratedText)
	}
	if row.Parameters.Error == nil || row.Parameters.Error.Kind != "timeout" {
		t.Errorf("expected parameters error kind timeout, got %+v", row.Parameters.Error)
	}
	if row.Parameters.Provider != "runway" {
		t.Errorf("expected provider to be kept, got %q", row.Parameters.Provider)
	}
	if row.Parameters.ContentType != ContentTypeVideo {
		t.Errorf("expected content type video, got %s", row.Parameters.ContentType)
	}
}

func TestGeneratedContent_Hashtags(t *testing.T) {
	c := &GeneratedContent{GeneratedHashtags: "#coffee  #morning\n#brew"}
	got := c.Hashtags()
	if len(got) != 3 || got[2] != "#brew" {
		t.Errorf("unexpected hashtags: %v", got)
	}
}
