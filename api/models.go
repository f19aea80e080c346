package api

// FramePayload is one captured grayscale frame. Pixels is row-major,
// base64-encoded on the wire, len = width*height.
type FramePayload struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Pixels      []byte `json:"pixels"`
	TimestampMs int64  `json:"timestamp_ms"`
}

// RegisterRequest is the JSON body for POST /register.
type RegisterRequest struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Frames   []FramePayload `json:"frames"`
}

// RegisterResponse is returned from POST /register. The secret and backup
// codes appear here exactly once.
type RegisterResponse struct {
	Secret          string   `json:"secret"`
	ProvisioningURI string   `json:"provisioning_uri"`
	BackupCodes     []string `json:"backup_codes"`
}

// LoginRequest is the JSON body for POST /login. Code is the 6-digit TOTP
// code or a backup recovery code.
type LoginRequest struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Code     string         `json:"code"`
	Frames   []FramePayload `json:"frames"`
}

// LoginResponse is returned from POST /login.
type LoginResponse struct {
	GrantID   string `json:"grant_id"`
	Username  string `json:"username"`
	GrantedAt string `json:"granted_at"`
	ExpiresAt string `json:"expires_at"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
