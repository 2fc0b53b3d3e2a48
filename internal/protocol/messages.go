package protocol

// HELLO (client -> server)
type HelloMsg struct {
	Type            string     `json:"type"`
	ProtocolVersion string     `json:"protocol_version"`
	AccountID       int64      `json:"account_id"`
	CharacterName   string     `json:"character_name"`
	Auth            *HelloAuth `json:"auth,omitempty"`
	// MapID selects the first map to enter; 0 resumes the last map of the account.
	MapID int `json:"map_id,omitempty"`
}

type HelloAuth struct {
	Token string `json:"token,omitempty"`
}

// WELCOME (server -> client)
type WelcomeMsg struct {
	Type            string         `json:"type"`
	ProtocolVersion string         `json:"protocol_version"`
	SessionID       string         `json:"session_id"`
	AccountID       int64          `json:"account_id"`
	MapID           int            `json:"map_id"`
	Catalogs        CatalogDigests `json:"catalogs"`
}

type CatalogDigests struct {
	ItemsDigest  string `json:"items_digest"`
	MapsDigest   string `json:"maps_digest"`
	TuningDigest string `json:"tuning_digest,omitempty"`
}

// ERROR (server -> client) reports a request the server refused.
type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	ReqID           string `json:"req_id,omitempty"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}

// NOTICE (server -> client) is a user-facing message.
type NoticeMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code,omitempty"`
	Text            string `json:"text"`
}

func NewError(reqID, code, message string) ErrorMsg {
	return ErrorMsg{Type: TypeError, ProtocolVersion: Version, ReqID: reqID, Code: code, Message: message}
}

func NewNotice(code, text string) NoticeMsg {
	return NoticeMsg{Type: TypeNotice, ProtocolVersion: Version, Code: code, Text: text}
}
