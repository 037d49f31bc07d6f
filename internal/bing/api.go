// SPDX-License-Identifier: MIT

// Package bing builds HPImageArchive API URLs and extracts the picture of
// the day from the API document.
package bing

import (
	"encoding/json"
	"fmt"
	"net/url"
)

// DefaultBase is the Bing host serving both the API and the images.
const DefaultBase = "https://www.bing.com"

// APIURL returns the HPImageArchive endpoint for one image in the given
// market, idx days back.
func APIURL(base, market string, idx int) string {
	q := url.Values{}
	q.Set("format", "js")
	q.Set("n", "1")
	q.Set("mkt", market)
	q.Set("idx", fmt.Sprintf("%d", idx))
	return base + "/HPImageArchive.aspx?" + q.Encode()
}

type apiResponse struct {
	Images []struct {
		URLBase   string `json:"urlbase"`
		Title     string `json:"title"`
		Copyright string `json:"copyright"`
	} `json:"images"`
}

// Image is the metadata of the picture of the day.
type Image struct {
	URL       string
	Title     string
	Copyright string
}

// ParseImage extracts the UHD image URL (and display metadata) from a raw
// API document.
func ParseImage(base string, raw []byte) (Image, error) {
	var resp apiResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return Image{}, fmt.Errorf("parse API response: %w", err)
	}
	if len(resp.Images) == 0 || resp.Images[0].URLBase == "" {
		return Image{}, fmt.Errorf("API response contains no image")
	}
	img := resp.Images[0]
	return Image{
		URL:       base + img.URLBase + "_UHD.jpg",
		Title:     img.Title,
		Copyright: img.Copyright,
	}, nil
}
