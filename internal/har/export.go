// Package har exports journaled exchanges as a HAR 1.2 log, so a run can
// be inspected in browser devtools or any HAR viewer.
package har

import (
	"encoding/json"
	"net/url"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/yourorg/restspec/pkg/types"
)

type File struct {
	Log Log `json:"log"`
}

type Log struct {
	Version string  `json:"version"`
	Creator Creator `json:"creator"`
	Comment string  `json:"comment,omitempty"`
	Entries []Entry `json:"entries"`
}

type Creator struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

type NameValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type Entry struct {
	StartedDateTime string   `json:"startedDateTime"`
	Time            int64    `json:"time"`
	Request         Request  `json:"request"`
	Response        Response `json:"response"`
	Cache           struct{} `json:"cache"`
	Timings         Timings  `json:"timings"`
	Comment         string   `json:"comment,omitempty"`
}

type Request struct {
	Method      string      `json:"method"`
	URL         string      `json:"url"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	QueryString []NameValue `json:"queryString"`
	Cookies     []NameValue `json:"cookies"`
	PostData    *PostData   `json:"postData,omitempty"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
}

type PostData struct {
	MimeType string `json:"mimeType"`
	Text     string `json:"text"`
}

type Response struct {
	Status      int         `json:"status"`
	StatusText  string      `json:"statusText"`
	HTTPVersion string      `json:"httpVersion"`
	Headers     []NameValue `json:"headers"`
	Cookies     []NameValue `json:"cookies"`
	Content     Content     `json:"content"`
	RedirectURL string      `json:"redirectURL"`
	HeadersSize int         `json:"headersSize"`
	BodySize    int         `json:"bodySize"`
	Comment     string      `json:"comment,omitempty"`
}

type Content struct {
	Size     int    `json:"size"`
	MimeType string `json:"mimeType"`
	Text     string `json:"text,omitempty"`
}

type Timings struct {
	Send    int64 `json:"send"`
	Wait    int64 `json:"wait"`
	Receive int64 `json:"receive"`
}

// Build converts a run's exchanges, in sequence order. The endpoint name
// of each exchange goes into the entry comment.
func Build(run *types.Run, exchanges []types.Exchange, version string) *File {
	exs := append([]types.Exchange(nil), exchanges...)
	sort.SliceStable(exs, func(i, j int) bool { return exs[i].Seq < exs[j].Seq })

	f := &File{Log: Log{
		Version: "1.2",
		Creator: Creator{Name: "restspec", Version: version},
		Entries: make([]Entry, 0, len(exs)),
	}}
	if run != nil {
		f.Log.Comment = run.ID + " " + run.BaseURL
	}
	for _, ex := range exs {
		f.Log.Entries = append(f.Log.Entries, entry(ex))
	}
	return f
}

func entry(ex types.Exchange) Entry {
	e := Entry{
		StartedDateTime: ex.Timestamp.UTC().Format(time.RFC3339Nano),
		Time:            ex.LatencyMs,
		Comment:         ex.Endpoint,
		Timings:         Timings{Send: 0, Wait: ex.LatencyMs, Receive: 0},
		Request: Request{
			Method:      ex.Method,
			URL:         ex.URL,
			HTTPVersion: "HTTP/1.1",
			Headers:     nameValues(ex.RequestHeaders),
			QueryString: queryString(ex.URL),
			Cookies:     []NameValue{},
			HeadersSize: -1,
			BodySize:    len(ex.RequestBody),
		},
		Response: Response{
			Status:      ex.StatusCode,
			HTTPVersion: "HTTP/1.1",
			Headers:     nameValues(ex.ResponseHeaders),
			Cookies:     []NameValue{},
			Content: Content{
				Size:     len(ex.ResponseBody),
				MimeType: contentType(ex.ResponseHeaders),
				Text:     ex.ResponseBody,
			},
			HeadersSize: -1,
			BodySize:    len(ex.ResponseBody),
			Comment:     ex.Error,
		},
	}
	if ex.RequestBody != "" {
		e.Request.PostData = &PostData{MimeType: contentType(ex.RequestHeaders), Text: ex.RequestBody}
	}
	return e
}

// Write encodes f as indented JSON to path.
func Write(path string, f *File) error {
	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func nameValues(m map[string]string) []NameValue {
	out := make([]NameValue, 0, len(m))
	for k, v := range m {
		out = append(out, NameValue{Name: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func queryString(raw string) []NameValue {
	u, err := url.Parse(raw)
	if err != nil {
		return []NameValue{}
	}
	out := []NameValue{}
	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		for _, v := range q[k] {
			out = append(out, NameValue{Name: k, Value: v})
		}
	}
	return out
}

func contentType(headers map[string]string) string {
	for k, v := range headers {
		if strings.EqualFold(k, "Content-Type") {
			return v
		}
	}
	return "application/json"
}
