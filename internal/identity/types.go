package identity

type PasswdEntry struct {
	Name   string
	Passwd string
	UID    int
	GID    int
	Gecos  string
	Home   string
	Shell  string
}

type ShadowEntry struct {
	Name       string
	Hash       string
	LastChange string
	Min        string
	Max        string
	Warn       string
	Inactive   string
	Expire     string
	Reserved   string
}

type GroupEntry struct {
	Name    string
	Passwd  string
	GID     int
	Members []string
}

// Status is the live credential state of an account as this tool
// observes it. Anything that is not verifiably locked counts as
// active, including accounts that vanished mid-run.
type Status int

const (
	StatusActive Status = iota
	StatusLocked
)

func (s Status) String() string {
	if s == StatusLocked {
		return "locked"
	}
	return "active"
}

// Account is the slice of a passwd entry the lifecycle engine cares
// about. Group memberships are queried separately since they live in
// a different file.
type Account struct {
	Name string
	UID  int
	GID  int
	Home string
}
