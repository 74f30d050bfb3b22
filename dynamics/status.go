package dynamics

// Status is a worker's live state, published through a telemetry cell as
// it steps, and doubles as the terminal classification the optimizer
// reads once a worker finishes. The integer ordering is load-bearing:
// any status greater than StatusSuccessTakeoff classifies that worker's
// mass as a failure.
type Status int32

const (
	StatusOptimizerSetup Status = iota
	StatusForkingProcess
	StatusExecutingAnalyzer
	StatusExtractingData
	StatusIteratingState
	StatusUpdatingCounts
	StatusCheckingLimits
	StatusSuccessTakeoff
	StatusFailedVelocity
	StatusAnalyzerError
)

// Terminal reports whether a status is one of the three states a worker
// can end its run on.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccessTakeoff, StatusFailedVelocity, StatusAnalyzerError:
		return true
	default:
		return false
	}
}

// Failed reports whether a terminal status counts as a failing mass for
// bracket classification. Only meaningful once Terminal() is true.
func (s Status) Failed() bool {
	return s > StatusSuccessTakeoff
}

func (s Status) String() string {
	switch s {
	case StatusOptimizerSetup:
		return "OPTIMIZER_SETUP"
	case StatusForkingProcess:
		return "FORKING_PROCESS"
	case StatusExecutingAnalyzer:
		return "EXECUTING_QPROP"
	case StatusExtractingData:
		return "EXTRACTING_DATA"
	case StatusIteratingState:
		return "ITERATING_STATE"
	case StatusUpdatingCounts:
		return "UPDATING_COUNTS"
	case StatusCheckingLimits:
		return "CHECKING_LIMITS"
	case StatusSuccessTakeoff:
		return "SUCCESS_TAKEOFF"
	case StatusFailedVelocity:
		return "FAILED_VELOCITY"
	case StatusAnalyzerError:
		return "ANALYZER_ERROR"
	default:
		return "UNKNOWN"
	}
}
