package model

import "fmt"

// Label is the NLI relation between a premise and a hypothesis
type Label int

const (
	LabelContradiction Label = 0
	LabelNeutral       Label = 1
	LabelEntailment    Label = 2
)

func (l Label) String() string {
	switch l {
	case LabelContradiction:
		return "contradiction"
	case LabelNeutral:
		return "neutral"
	case LabelEntailment:
		return "entailment"
	default:
		return fmt.Sprintf("label(%d)", int(l))
	}
}

// Valid reports whether l is one of the three NLI labels
func (l Label) Valid() bool {
	return l >= LabelContradiction && l <= LabelEntailment
}

// ParseLabel maps a classifier label name to a Label
// Accepts the usual MNLI spellings ("ENTAILMENT", "entailment", "LABEL_2")
func ParseLabel(s string) (Label, error) {
	switch s {
	case "contradiction", "CONTRADICTION", "Contradiction", "LABEL_0":
		return LabelContradiction, nil
	case "neutral", "NEUTRAL", "Neutral", "LABEL_1":
		return LabelNeutral, nil
	case "entailment", "ENTAILMENT", "Entailment", "LABEL_2":
		return LabelEntailment, nil
	default:
		return LabelNeutral, fmt.Errorf("unknown NLI label: %q", s)
	}
}

func (l Label) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

func (l *Label) UnmarshalText(text []byte) error {
	parsed, err := ParseLabel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// Verdict is the classifier output for one (premise, hypothesis) pair
type Verdict struct {
	Label      Label   `json:"label"`
	Confidence float64 `json:"confidence"` // Probability mass of the predicted label, not calibrated
}

// Entails reports whether the verdict is an entailment strictly above threshold
func (v Verdict) Entails(threshold float64) bool {
	return v.Label == LabelEntailment && v.Confidence > threshold
}
