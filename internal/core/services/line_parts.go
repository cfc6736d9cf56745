package services

import (
	"bufio"
	"bytes"
	"math"
	"strings"
	"time"

	"floorview/internal/core/domain"
)

// DefaultPolicy is the sorting policy compiled from any parsed document.
func DefaultPolicy(sourceDocument string, createdAt time.Time) *domain.Policy {
	return &domain.Policy{
		Version:         "1",
		Status:          domain.PolicyDraft,
		CreatedAt:       createdAt,
		SourceDocuments: []string{sourceDocument},
		DecisionRules: []domain.DecisionRule{
			{ID: "RULE_001", Priority: 1, Condition: "defect_detected == true", Action: domain.ActionReject, TargetBin: domain.RejectBin},
			{ID: "RULE_002", Priority: 2, Condition: "confidence < 0.7", Action: domain.ActionManualReview, TargetBin: domain.ReviewBin},
			{ID: "RULE_003", Priority: 3, Condition: "color == 'red' AND size_mm > 50", Action: domain.ActionSort, TargetBin: domain.BinA},
			{ID: "RULE_004", Priority: 4, Condition: "color == 'blue' AND size_mm >= 30 AND size_mm <= 50", Action: domain.ActionSort, TargetBin: domain.BinB},
			{ID: "RULE_005", Priority: 5, Condition: "color == 'green' AND size_mm < 30", Action: domain.ActionSort, TargetBin: domain.BinC},
		},
		DefaultAction: domain.DefaultAction{Action: domain.ActionManualReview, TargetBin: domain.ReviewBin},
	}
}

const bytesPerPage = 3000

// parseDocument extracts markdown headings and counts table blocks.
func parseDocument(filename string, content []byte) *domain.Document {
	doc := &domain.Document{
		Filename:  filename,
		SizeBytes: len(content),
		Pages:     1 + len(content)/bytesPerPage,
		Sections:  []string{},
	}

	inTable := false
	sc := bufio.NewScanner(bytes.NewReader(content))
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if strings.HasPrefix(line, "|") {
			if !inTable {
				doc.TablesFound++
			}
			inTable = true
			continue
		}
		inTable = false
		if strings.HasPrefix(line, "#") {
			if title := strings.TrimSpace(strings.TrimLeft(line, "#")); title != "" {
				doc.Sections = append(doc.Sections, title)
			}
		}
	}
	return doc
}

type partColor struct {
	name string
	hex  string
}

var lineColors = []partColor{
	{"red", "#ef4444"},
	{"blue", "#3b82f6"},
	{"green", "#22c55e"},
	{"yellow", "#eab308"},
}

var shapes = []string{"round", "square", "irregular"}

// defectRate is the share of parts sampled with a surface defect.
const defectRate = 0.08

// samplePart draws a synthetic part. Caller holds s.mu.
func (s *LineService) samplePart() (partFacts, domain.PartClassification, domain.DefectInspection) {
	c := lineColors[s.rng.IntN(len(lineColors))]
	size := math.Round((10+s.rng.Float64()*70)*10) / 10
	confidence := math.Round((0.55+s.rng.Float64()*0.44)*100) / 100
	defect := s.rng.Float64() < defectRate

	class := domain.PartClassification{
		Color:        c.name,
		ColorHex:     c.hex,
		SizeMM:       size,
		SizeCategory: sizeCategory(size),
		PartType:     "widget",
		Shape:        shapes[s.rng.IntN(len(shapes))],
		Confidence:   confidence,
	}
	inspection := domain.DefectInspection{
		DefectDetected:    defect,
		SurfaceQuality:    "acceptable",
		OverallConfidence: confidence,
	}
	if defect {
		inspection.SurfaceQuality = "reject"
	}

	facts := partFacts{
		Color:          c.name,
		SizeMM:         size,
		Confidence:     confidence,
		DefectDetected: defect,
	}
	return facts, class, inspection
}

func sizeCategory(mm float64) string {
	switch {
	case mm < 30:
		return "small"
	case mm > 50:
		return "large"
	default:
		return "medium"
	}
}
