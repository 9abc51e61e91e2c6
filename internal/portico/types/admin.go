package types

type PropertyView struct {
	Number      string `json:"number"`
	PhoneString string `json:"phone_string"`
	Name        string `json:"name,omitempty"`
	Address     string `json:"address,omitempty"`
	DTMF        string `json:"dtmf,omitempty"`
}

type PropertyRequest struct {
	Number  string `json:"number"`
	Name    string `json:"name,omitempty"`
	Address string `json:"address,omitempty"`
	DTMF    string `json:"dtmf,omitempty"`
}

type CheckInView struct {
	ID       string `json:"id"`
	Property string `json:"property"`
	Time     string `json:"time"` // RFC3339
	TimeMs   int64  `json:"time_ms"`
	Name     string `json:"name,omitempty"`
	Status   string `json:"status"`
}

type CheckInRequest struct {
	Property string `json:"property"`
	TimeMs   int64  `json:"time_ms"`
	Name     string `json:"name,omitempty"`
}

type CallView struct {
	Time       string `json:"time"` // RFC3339
	CalledAtMs int64  `json:"called_at_ms"`
	Caller     string `json:"caller"`
	Property   string `json:"property,omitempty"`
	Success    bool   `json:"success"`
}

type Counters struct {
	UserID         string `json:"user_id"`
	HistoricCalls  int64  `json:"historic_calls"`
	ActiveCheckIns int    `json:"active_checkins"`
}
