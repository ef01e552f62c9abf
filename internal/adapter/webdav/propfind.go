package webdav

import (
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Ning0612/mercury/internal/domain"
	"github.com/Ning0612/mercury/internal/fileutil"
)

// FairspaceNS is the namespace of the platform's own WebDAV properties
const FairspaceNS = "https://fairspace.nl/ontology#"

const propfindBody = `<?xml version="1.0" encoding="utf-8"?>
<d:propfind xmlns:d="DAV:" xmlns:fs="` + FairspaceNS + `">
  <d:prop>
    <d:displayname/>
    <d:resourcetype/>
    <d:getcontentlength/>
    <d:getcontenttype/>
    <d:getlastmodified/>
    <d:creationdate/>
    <fs:iri/>
    <fs:linkedEntityType/>
    <fs:linkedEntityIri/>
    <fs:dateDeleted/>
  </d:prop>
</d:propfind>`

type multistatus struct {
	Responses []response `xml:"DAV: response"`
}

type response struct {
	Href      string     `xml:"DAV: href"`
	Propstats []propstat `xml:"DAV: propstat"`
}

type propstat struct {
	Prop   prop   `xml:"DAV: prop"`
	Status string `xml:"DAV: status"`
}

type resourceType struct {
	Collection *struct{} `xml:"DAV: collection"`
}

type prop struct {
	DisplayName      string       `xml:"DAV: displayname"`
	ResourceType     resourceType `xml:"DAV: resourcetype"`
	ContentLength    int64        `xml:"DAV: getcontentlength"`
	ContentType      string       `xml:"DAV: getcontenttype"`
	LastModified     string       `xml:"DAV: getlastmodified"`
	CreationDate     string       `xml:"DAV: creationdate"`
	IRI              string       `xml:"https://fairspace.nl/ontology# iri"`
	LinkedEntityType string       `xml:"https://fairspace.nl/ontology# linkedEntityType"`
	LinkedEntityIRI  string       `xml:"https://fairspace.nl/ontology# linkedEntityIri"`
	DateDeleted      string       `xml:"https://fairspace.nl/ontology# dateDeleted"`
}

// okProp merges the properties the server could resolve
func (r response) okProp() prop {
	var out prop
	for _, ps := range r.Propstats {
		if !strings.Contains(ps.Status, " 200") {
			continue
		}
		p := ps.Prop
		if p.ResourceType.Collection != nil {
			out.ResourceType = p.ResourceType
		}
		out.DisplayName = firstNonEmpty(out.DisplayName, p.DisplayName)
		out.ContentType = firstNonEmpty(out.ContentType, p.ContentType)
		out.LastModified = firstNonEmpty(out.LastModified, p.LastModified)
		out.CreationDate = firstNonEmpty(out.CreationDate, p.CreationDate)
		out.IRI = firstNonEmpty(out.IRI, p.IRI)
		out.LinkedEntityType = firstNonEmpty(out.LinkedEntityType, p.LinkedEntityType)
		out.LinkedEntityIRI = firstNonEmpty(out.LinkedEntityIRI, p.LinkedEntityIRI)
		out.DateDeleted = firstNonEmpty(out.DateDeleted, p.DateDeleted)
		if p.ContentLength > 0 {
			out.ContentLength = p.ContentLength
		}
	}
	return out
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

func parseMultistatus(r io.Reader) ([]response, error) {
	var ms multistatus
	if err := xml.NewDecoder(r).Decode(&ms); err != nil {
		return nil, fmt.Errorf("decode multistatus: %w", err)
	}
	return ms.Responses, nil
}

// entryPath turns an href into a path relative to the storage root
func (a *Adapter) entryPath(href string) (string, error) {
	u, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("invalid href %q: %w", href, err)
	}
	p := u.Path
	root := strings.TrimSuffix(a.base.Path, "/")
	if !strings.HasPrefix(p, root) {
		return "", fmt.Errorf("href %q outside of %s", href, root)
	}
	return fileutil.Normalize(strings.TrimPrefix(p, root)), nil
}

func (a *Adapter) toEntry(r response) (domain.FileEntry, error) {
	path, err := a.entryPath(r.Href)
	if err != nil {
		return domain.FileEntry{}, err
	}
	p := r.okProp()

	entry := domain.FileEntry{
		Filename:         path,
		Basename:         fileutil.Basename(path),
		IsCollection:     p.ResourceType.Collection != nil,
		LinkedEntityIRI:  firstNonEmpty(p.LinkedEntityIRI, p.IRI),
		LinkedEntityType: p.LinkedEntityType,
		ContentType:      p.ContentType,
		DateCreated:      parseTime(p.CreationDate),
		DateModified:     parseTime(p.LastModified),
	}
	if !entry.IsCollection {
		entry.Size = p.ContentLength
	}
	if t := parseTime(p.DateDeleted); !t.IsZero() {
		entry.DateDeleted = &t
	}
	return entry, nil
}

var timeLayouts = []string{time.RFC3339Nano, http.TimeFormat, time.RFC1123, time.RFC1123Z}

func parseTime(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
