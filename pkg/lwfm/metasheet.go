package lwfm

// Reserved Metasheet property keys, framework-controlled: clients may add
// their own keys but must not rewrite these.
const (
	PropDirection   = "_direction"
	PropWorkflowID  = "_workflowId"
	PropJobID       = "_jobId"
	PropSiteName    = "_siteName"
	PropLocalPath   = "_localPath"
	PropSiteObjPath = "_siteObjPath"
)

// Direction values for the reserved "_direction" property.
const (
	DirectionPut = "put"
	DirectionGet = "get"
)

// Metasheet is metadata attached to a data object under management by a
// job. Props is an open map; once notated, entries may be appended to but
// the reserved keys above must not be overwritten by callers.
type Metasheet struct {
	SheetID  string
	JobID    string
	SiteName string
	LocalURL string
	SiteURL  string
	Props    map[string]string
}

// NewMetasheet returns a Metasheet with a copy of props (never nil), so
// callers can safely mutate their own map after the call.
func NewMetasheet(sheetID, jobID, siteName, localURL, siteURL string, props map[string]string) *Metasheet {
	p := make(map[string]string, len(props))
	for k, v := range props {
		p[k] = v
	}
	return &Metasheet{
		SheetID:  sheetID,
		JobID:    jobID,
		SiteName: siteName,
		LocalURL: localURL,
		SiteURL:  siteURL,
		Props:    p,
	}
}
