package wait

// Advice is the congestion tier shown to customers.
type Advice int

const (
	// AdviceClosed covers both out-of-hours and ended reception.
	AdviceClosed Advice = iota
	// AdviceComeNow means no wait at all.
	AdviceComeNow
	// AdviceShortWait means up to an hour of waiting.
	AdviceShortWait
	// AdviceBusy means one to two hours of waiting.
	AdviceBusy
	// AdviceFull means more than two hours of waiting.
	AdviceFull
)

// Recommend maps the projected wait to a congestion tier.
func Recommend(totalWait int, open bool, receptionEnded bool) Advice {
	switch {
	case !open || receptionEnded:
		return AdviceClosed
	case totalWait == 0:
		return AdviceComeNow
	case totalWait <= 60:
		return AdviceShortWait
	case totalWait <= 120:
		return AdviceBusy
	default:
		return AdviceFull
	}
}

// String returns the tier's wire name.
func (a Advice) String() string {
	switch a {
	case AdviceComeNow:
		return "come_now"
	case AdviceShortWait:
		return "short_wait"
	case AdviceBusy:
		return "busy"
	case AdviceFull:
		return "full"
	default:
		return "closed"
	}
}
