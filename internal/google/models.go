// internal/google/models.go
package google

import "encoding/json"

// AnswerKind tags the variant held by an Answer.
type AnswerKind int

const (
	// AnswerPlainText is a bare string answer.
	AnswerPlainText AnswerKind = iota
	// AnswerAlternatives is an ordered list of text values; the first is canonical.
	AnswerAlternatives
	// AnswerOther is any other answer shape, carried as its raw JSON rendering.
	AnswerOther
)

// Answer is the tagged union of answer shapes the Forms API produces.
// The untyped "string or textAnswers or anything" payload is resolved
// here, once, instead of being re-inspected downstream.
type Answer struct {
	Kind         AnswerKind
	Text         string
	Alternatives []string
	Raw          string
}

// PlainTextAnswer builds a bare string answer.
func PlainTextAnswer(text string) Answer {
	return Answer{Kind: AnswerPlainText, Text: text}
}

// textAnswersEnvelope mirrors the wire shape {"textAnswers":{"answers":[{"value":...}]}}.
type textAnswersEnvelope struct {
	TextAnswers *struct {
		Answers []struct {
			Value string `json:"value"`
		} `json:"answers"`
	} `json:"textAnswers"`
}

func (a *Answer) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*a = Answer{Kind: AnswerPlainText, Text: s}
		return nil
	}

	var env textAnswersEnvelope
	if err := json.Unmarshal(data, &env); err == nil && env.TextAnswers != nil {
		alts := make([]string, 0, len(env.TextAnswers.Answers))
		for _, v := range env.TextAnswers.Answers {
			alts = append(alts, v.Value)
		}
		*a = Answer{Kind: AnswerAlternatives, Alternatives: alts}
		return nil
	}

	*a = Answer{Kind: AnswerOther, Raw: string(data)}
	return nil
}

// Value returns the canonical string rendering of the answer: the text
// itself, the first alternative, or the raw JSON for anything else.
func (a Answer) Value() string {
	switch a.Kind {
	case AnswerPlainText:
		return a.Text
	case AnswerAlternatives:
		if len(a.Alternatives) > 0 {
			return a.Alternatives[0]
		}
		return ""
	default:
		return a.Raw
	}
}

// FormResponse is one submitted response from the primary retrieval path.
type FormResponse struct {
	ResponseID string            `json:"responseId"`
	CreateTime string            `json:"createTime"`
	Answers    map[string]Answer `json:"answers"`
}

type listResponsesResult struct {
	Responses []FormResponse `json:"responses"`
}

// formMetadata carries the linked response destination, when one exists.
type formMetadata struct {
	ResponseDestination struct {
		DestinationType string `json:"destinationType"`
		Spreadsheet     string `json:"spreadsheet"`
	} `json:"responseDestination"`
}

type spreadsheetMetadata struct {
	Sheets []struct {
		Properties struct {
			Title string `json:"title"`
		} `json:"properties"`
	} `json:"sheets"`
}

type valuesResult struct {
	Values [][]string `json:"values"`
}
