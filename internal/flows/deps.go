package flows

// Deps groups flow dependency sets. The root engine builds this once and
// delegates request methods to the matching flow implementation.
type Deps struct {
	Login  LoginDeps
	Logout LogoutDeps
}

// Stage identifies where in an operation a failure happened. The order matches
// the root package's Step values.
type Stage uint8

const (
	StageInput Stage = iota
	StageThrottle
	StageRequestToken
	StageValidateLogin
	StageCreateSession
	StageResolveUser
	StagePersist
	StageLogout
)

var stageNames = [...]string{
	StageInput:         "input",
	StageThrottle:      "throttle",
	StageRequestToken:  "request_token",
	StageValidateLogin: "validate_login",
	StageCreateSession: "create_session",
	StageResolveUser:   "resolve_user",
	StagePersist:       "persist",
	StageLogout:        "logout",
}

func (s Stage) String() string {
	if int(s) < len(stageNames) {
		return stageNames[s]
	}
	return "unknown"
}

// State is the progress of one login attempt. The order matches the root
// package's AuthState values.
type State uint8

const (
	StateIdle State = iota
	StateRequesting
	StateValidating
	StateSessionPending
	StateResolvingUser
	StateComplete
	StateFailed
)

var stateNames = [...]string{
	StateIdle:           "idle",
	StateRequesting:     "requesting",
	StateValidating:     "validating",
	StateSessionPending: "session_pending",
	StateResolvingUser:  "resolving_user",
	StateComplete:       "complete",
	StateFailed:         "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "unknown"
}
