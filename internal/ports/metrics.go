package ports

// IssuanceMetrics records pipeline counters. The concrete recorder is wired
// in main; a nil recorder disables instrumentation.
type IssuanceMetrics interface {
	OrderProcessed()
	OrderSkipped(reason string)
	GiftCardIssued()
	GiftCardFailed()
	IssuanceObserved(seconds float64)
}
