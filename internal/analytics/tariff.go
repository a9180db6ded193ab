package analytics

// EstimateKwh converts a monetary top-up into the kWh it credits under a
// flat tariff: the admin fee and tax come off the purchase amount first,
// the remainder buys energy. Never returns a negative credit.
//
// A tiered-tariff lookup could slot in above this; the flat-rate path stays
// as the fallback.
func EstimateKwh(tokenCost, adminFee, taxPercent, tariffPerKwh float64) float64 {
	if tariffPerKwh <= 0 {
		return 0
	}
	taxAmount := tokenCost * taxPercent / 100
	netAmount := tokenCost - adminFee - taxAmount
	if netAmount <= 0 {
		return 0
	}
	return netAmount / tariffPerKwh
}
