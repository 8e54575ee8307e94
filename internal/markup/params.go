package markup

import "sort"

// Parameter describes one sentiment parameter reported by the recognition
// service: the numeric range of its scores and a display label.
type Parameter struct {
	// Min and Max bound the scores the service reports for this parameter.
	// Thresholds configured outside this range can never (Min) or always
	// never-trigger (Max), so rule validation rejects them.
	Min float64
	Max float64

	// Label is the human-readable display name.
	Label string
}

// Parameters is the catalogue of sentiment parameters carried in the
// service's sentiment analysis segments.
var Parameters = map[string]Parameter{
	"energy":               {0, 100, "エネルギー"},
	"stress":               {0, 100, "ストレス"},
	"emo_cog":              {1, 500, "感情バランス論理"},
	"concentration":        {0, 100, "濃縮"},
	"anticipation":         {0, 100, "期待"},
	"excitement":           {0, 30, "興奮した"},
	"hesitation":           {0, 30, "躊躇"},
	"uncertainty":          {0, 30, "不確実"},
	"intensive_thinking":   {0, 100, "考える"},
	"imagination_activity": {0, 30, "想像"},
	"embarrassment":        {0, 30, "困惑した"},
	"passionate":           {0, 30, "情熱"},
	"brain_power":          {0, 100, "脳活動"},
	"confidence":           {0, 30, "自信"},
	"aggression":           {0, 30, "攻撃性憤り"},
	"atmosphere":           {-100, 100, "雰囲気会話傾向"},
	"upset":                {0, 30, "動揺"},
	"content":              {0, 30, "喜び"},
	"dissatisfaction":      {0, 30, "不満"},
	"extreme_emotion":      {0, 30, "極端な起伏"},
}

// ParameterNames returns the catalogue's parameter names in sorted order.
func ParameterNames() []string {
	names := make([]string, 0, len(Parameters))
	for name := range Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
