package nvd

// CPE is a resolved platform entry returned by the CPE endpoint
type CPE struct {
	Deprecated   bool       `json:"deprecated"`
	Name         string     `json:"cpeName"`
	NameID       string     `json:"cpeNameId"`
	LastModified string     `json:"lastModified"`
	Created      string     `json:"created"`
	Titles       []CPETitle `json:"titles"`
	Refs         []CPERef   `json:"refs"`
}

type CPETitle struct {
	Title string `json:"title"`
	Lang  string `json:"lang"`
}

type CPERef struct {
	Ref  string `json:"ref"`
	Type string `json:"type"`
}

// CVE is a vulnerability record, keyed by the CPE name that produced it
type CVE struct {
	ID           string        `json:"id"`
	Published    string        `json:"published"`
	Descriptions []Description `json:"descriptions"`
	Weaknesses   []Weakness    `json:"weaknesses"`
	References   []Reference   `json:"references"`

	CPEName string `json:"cpeName"`
}

type Description struct {
	Lang  string `json:"lang"`
	Value string `json:"value"`
}

type Weakness struct {
	Source      string        `json:"source"`
	Type        string        `json:"type"`
	Description []Description `json:"description"`
}

type Reference struct {
	URL    string   `json:"url"`
	Source string   `json:"source"`
	Tags   []string `json:"tags,omitempty"`
}

// Result is the combined output of one aggregation
type Result struct {
	Identifier      Identifier `json:"identifier"`
	Platforms       []CPE      `json:"platforms"`
	Vulnerabilities []CVE      `json:"vulnerabilities"`
}

// cpeResponse is the envelope of GET /cpes/2.0
type cpeResponse struct {
	ResultsPerPage int `json:"resultsPerPage"`
	StartIndex     int `json:"startIndex"`
	TotalResults   int `json:"totalResults"`
	Products       []struct {
		CPE CPE `json:"cpe"`
	} `json:"products"`
}

// cveResponse is the envelope of GET /cves/2.0
type cveResponse struct {
	ResultsPerPage  int `json:"resultsPerPage"`
	StartIndex      int `json:"startIndex"`
	TotalResults    int `json:"totalResults"`
	Vulnerabilities []struct {
		CVE CVE `json:"cve"`
	} `json:"vulnerabilities"`
}
