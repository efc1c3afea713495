package vc

// SessionBrief is one entry in a day's program list. The week/day/session
// coordinates the detail endpoint needs are embedded in the URL query;
// Week, Day, and DateStart are also carried as top-level fields because
// the vendor does not reliably include them in the URL.
type SessionBrief struct {
	Title     string `json:"title"`
	URL       string `json:"url"`
	Client    string `json:"client,omitempty"`
	Group     string `json:"group,omitempty"`
	Week      string `json:"week,omitempty"`
	Day       string `json:"day,omitempty"`
	DateStart string `json:"dateStart,omitempty"`
}

// SessionDetail is the full content of a single session. HTML is vendor
// markup and is rendered as-is by the viewer.
type SessionDetail struct {
	Title string `json:"title"`
	HTML  string `json:"html"`
}

// loginResponse is the JSON body a successful logon returns. Older
// deployments omit it and only send a Set-Cookie header.
type loginResponse struct {
	Cookie string `json:"Cookie"`
}

// listEnvelope is the wrapped list shape; some responses are a bare array
// instead.
type listEnvelope struct {
	Sessions []SessionBrief `json:"sessions"`
}
