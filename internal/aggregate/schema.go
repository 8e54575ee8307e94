package aggregate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// chunkPayload is the subset of a terminal poll response the aggregator
// consumes. Everything else in the stored result is ignored. A chunk whose
// remote job ended in status "error" typically carries no segments and simply
// contributes nothing.
type chunkPayload struct {
	Segments          []segment          `json:"segments"`
	SentimentAnalysis *sentimentAnalysis `json:"sentiment_analysis"`
}

type segment struct {
	Results []segmentResult `json:"results"`
}

type segmentResult struct {
	Tokens []token `json:"tokens"`
}

// token is one diarized recognition token. Times are in milliseconds.
type token struct {
	Label   string `json:"label"`
	Written string `json:"written"`
	Start   int64  `json:"starttime"`
	End     int64  `json:"endtime"`
}

type sentimentAnalysis struct {
	Segments []sentimentSegment `json:"segments"`
}

// sentimentSegment is one sentiment analysis interval. Besides starttime and
// endtime (milliseconds) the object carries an open-ended set of named
// numeric scores, so decoding is field-driven rather than struct-driven.
type sentimentSegment struct {
	Start  int64
	End    int64
	Scores map[string]float64
}

// UnmarshalJSON pulls starttime/endtime out of the object and collects every
// other numeric field as a sentiment score. Non-numeric fields are ignored.
func (s *sentimentSegment) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var fields map[string]any
	if err := dec.Decode(&fields); err != nil {
		return fmt.Errorf("sentiment segment: %w", err)
	}

	s.Scores = make(map[string]float64)
	for name, value := range fields {
		num, ok := value.(json.Number)
		if !ok {
			continue
		}
		f, err := num.Float64()
		if err != nil {
			continue
		}
		switch name {
		case "starttime":
			s.Start = int64(f)
		case "endtime":
			s.End = int64(f)
		default:
			s.Scores[name] = f
		}
	}
	return nil
}
