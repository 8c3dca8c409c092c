package fetcher

// Header profiles tried in order: the desktop Chrome profile first, a
// Linux fallback with a narrower Accept when the first attempt fails.
var headerProfiles = []map[string]string{
	{
		"User-Agent": "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Cache-Control":   "no-cache",
	},
	{
		"User-Agent": "Mozilla/5.0 (X11; Linux x86_64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36",
		"Accept":          "text/html,*/*;q=0.8",
		"Accept-Language": "en;q=0.8",
	},
}

// HeaderProfileCount is the number of UA profiles attempted per fetch.
const HeaderProfileCount = 2
