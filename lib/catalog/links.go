package catalog

import "net/url"

// Links are the navigation URLs for a page rendered with the given params.
// Each keeps the current search and popularity filter.
type Links struct {
	Browse        string
	Watchlist     string
	TogglePopular string
}

// LinksFor returns the navigation links for p.
func LinksFor(p Params) Links {
	popular := ""
	if p.PopularOnly {
		popular = "1"
	}
	toggled := "1"
	if p.PopularOnly {
		toggled = ""
	}

	return Links{
		Browse:        With(map[string]string{"q": p.Query, "view": string(ViewBrowse), "popular": popular}),
		Watchlist:     With(map[string]string{"q": p.Query, "view": string(ViewWatchlist), "popular": popular}),
		TogglePopular: With(map[string]string{"q": p.Query, "view": string(p.View), "popular": toggled}),
	}
}

// With renders "/?k=v..." from params, dropping empty values. It returns "/"
// when nothing is left.
func With(params map[string]string) string {
	v := url.Values{}
	for k, val := range params {
		if val != "" {
			v.Set(k, val)
		}
	}
	if len(v) == 0 {
		return "/"
	}
	return "/?" + v.Encode()
}
