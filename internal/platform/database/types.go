package database

// Preferences is the CLI state that outlives a single run. Site settings live
// in config.yaml, not here.
type Preferences struct {
	UpdateNotifications bool   `json:"updateNotifications"`
	UpdateAvailable     bool   `json:"updateAvailable"`
	LatestSeen          string `json:"latestSeen"`   // newest tag the last check saw
	StartCounter        int    `json:"startCounter"` // bumped on each service start
}

func DefaultPreferences() Preferences {
	return Preferences{UpdateNotifications: true}
}
