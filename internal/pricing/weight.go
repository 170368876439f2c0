package pricing

// WeighMode tells the resolver how the dispensed quantity was captured.
type WeighMode string

const (
	WeighModeWeighing WeighMode = "weighing"
	WeighModeDirect   WeighMode = "direct"
)

// ResolveNetWeight returns the dispensed weight in grams from either a
// tare/gross pair or a directly entered quantity. It never returns a negative
// value and treats unreadable input as zero.
func ResolveNetWeight(mode WeighMode, tare, gross, direct string) int64 {
	switch mode {
	case WeighModeWeighing:
		return maxInt64(0, ParseGrams(gross)-ParseGrams(tare))
	case WeighModeDirect:
		return maxInt64(0, ParseGrams(direct))
	default:
		return 0
	}
}
