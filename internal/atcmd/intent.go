package atcmd

// Intent is the meaning of one recognized command line.
type Intent int

const (
	IntentNone Intent = iota

	IntentMux             // AT+CIPMUX=1
	IntentServer          // AT+CIPSERVER=1,8080
	IntentServerTimeout   // AT+CIPSTO=360
	IntentStationMode     // AT+CWMODE=1
	IntentAccessPointMode // AT+CWMODE=2
	IntentSmartConfig     // AT+CWSMARTSTART=1
	IntentSmartStart      // AT+CWSTARTSMART
	IntentVersion         // AT+GMR
	IntentRestore         // AT+RESTORE
	IntentReset           // AT+RST
)

var intentNames = [...]string{
	IntentNone:            "none",
	IntentMux:             "mux",
	IntentServer:          "server",
	IntentServerTimeout:   "server-timeout",
	IntentStationMode:     "station-mode",
	IntentAccessPointMode: "access-point-mode",
	IntentSmartConfig:     "smart-config",
	IntentSmartStart:      "smart-start",
	IntentVersion:         "version",
	IntentRestore:         "restore",
	IntentReset:           "reset",
}

func (i Intent) String() string {
	if i < 0 || int(i) >= len(intentNames) {
		return "unknown"
	}
	return intentNames[i]
}

// Resets reports whether the companion expects the synthetic link
// acknowledgement after sending this command.
func (i Intent) Resets() bool {
	return i == IntentReset
}

// vocabulary pairs each command token with its intent, sorted by token.
var vocabulary = []struct {
	token  string
	intent Intent
}{
	{"CIPMUX=1", IntentMux},
	{"CIPSERVER=1,8080", IntentServer},
	{"CIPSTO=360", IntentServerTimeout},
	{"CWMODE=1", IntentStationMode},
	{"CWMODE=2", IntentAccessPointMode},
	{"CWSMARTSTART=1", IntentSmartConfig},
	{"CWSTARTSMART", IntentSmartStart},
	{"GMR", IntentVersion},
	{"RESTORE", IntentRestore},
	{"RST", IntentReset},
}
