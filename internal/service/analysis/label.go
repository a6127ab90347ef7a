package analysis

const (
	LabelPositive = "Positive"
	LabelNegative = "Negative"
	LabelNeutral  = "Neutral"
)

// polarityThreshold separates neutral scores from polar ones.
const polarityThreshold = 0.3

// Label maps a sentiment score to its display label.
func Label(score float64) string {
	switch {
	case score > polarityThreshold:
		return LabelPositive
	case score < -polarityThreshold:
		return LabelNegative
	default:
		return LabelNeutral
	}
}

// Emoji maps a sentiment score to a face matching its label.
func Emoji(score float64) string {
	switch Label(score) {
	case LabelPositive:
		return "😊"
	case LabelNegative:
		return "😞"
	default:
		return "😐"
	}
}
