package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
)

// Token is an opaque session token issued by UserAPI.Login
type Token string

// Duration marshals as a Go duration string like "10s"
type Duration time.Duration

func (d Duration) String() string {
	return time.Duration(d).String()
}

// MarshalJSON implements json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds
func (d *Duration) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(v)
		return nil
	}
	var n int64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid duration %s", data)
	}
	*d = Duration(n)
	return nil
}

// StringSet marshals as a sorted JSON array of its members
type StringSet map[string]bool

// NewStringSet creates a set from items
func NewStringSet(items ...string) StringSet {
	s := make(StringSet, len(items))
	for _, item := range items {
		s[item] = true
	}
	return s
}

// Has reports whether item is in the set
func (s StringSet) Has(item string) bool {
	return s[item]
}

// Items returns the members in sorted order
func (s StringSet) Items() []string {
	out := make([]string, 0, len(s))
	for k := range s {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// MarshalJSON implements json.Marshaler
func (s StringSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Items())
}

// UnmarshalJSON implements json.Unmarshaler
func (s *StringSet) UnmarshalJSON(data []byte) error {
	var items []string
	if err := json.Unmarshal(data, &items); err != nil {
		return err
	}
	*s = NewStringSet(items...)
	return nil
}

// File is an entry of a lambda directory listing
type File struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
}

// Schedule runs an action of a lambda on a cron expression
type Schedule struct {
	Cron      string   `json:"cron"`
	Action    string   `json:"action"`
	TimeLimit Duration `json:"time_limit"`
}

// Manifest describes how a lambda is invoked
type Manifest struct {
	Name           string            `json:"name,omitempty"`
	Description    string            `json:"description,omitempty"`
	Run            []string          `json:"run"`
	OutputHeaders  map[string]string `json:"output_headers,omitempty"`
	InputHeaders   map[string]string `json:"input_headers,omitempty"`
	Query          map[string]string `json:"query,omitempty"`
	Environment    map[string]string `json:"environment,omitempty"`
	Method         string            `json:"method,omitempty"`
	MethodEnv      string            `json:"method_env,omitempty"`
	PathEnv        string            `json:"path_env,omitempty"`
	TimeLimit      Duration          `json:"time_limit,omitempty"`
	MaximumPayload int64             `json:"maximum_payload,omitempty"`
	AllowedIP      StringSet         `json:"allowed_ip,omitempty"`
	AllowedOrigin  StringSet         `json:"allowed_origin,omitempty"`
	Public         bool              `json:"public"`
	Tokens         map[string]string `json:"tokens,omitempty"`
	Aliases        StringSet         `json:"aliases,omitempty"`
	Cron           []Schedule        `json:"cron,omitempty"`
	Static         string            `json:"static,omitempty"`
}

var ErrEmptyRun = errors.New("manifest: run command is empty")

// Validate checks the manifest before it is sent with LambdaAPI.Update
func (m *Manifest) Validate() error {
	if len(m.Run) == 0 && m.Static == "" {
		return ErrEmptyRun
	}
	if m.TimeLimit < 0 {
		return fmt.Errorf("manifest: negative time limit %s", time.Duration(m.TimeLimit))
	}
	if m.MaximumPayload < 0 {
		return fmt.Errorf("manifest: negative maximum payload %d", m.MaximumPayload)
	}
	for i, s := range m.Cron {
		if _, err := cron.ParseStandard(s.Cron); err != nil {
			return fmt.Errorf("manifest: cron #%d %q: %w", i, s.Cron, err)
		}
		if s.Action == "" {
			return fmt.Errorf("manifest: cron #%d has no action", i)
		}
	}
	return nil
}

// Definition is a deployed lambda
type Definition struct {
	UID      string   `json:"uid"`
	Aliases  []string `json:"aliases"`
	Manifest Manifest `json:"manifest"`
}

// Request is the incoming HTTP request recorded for a lambda invocation
type Request struct {
	Method        string            `json:"method"`
	URL           string            `json:"url"`
	Path          string            `json:"path"`
	RemoteAddress string            `json:"remote_address"`
	Form          map[string]string `json:"form"`
	Headers       map[string]string `json:"headers"`
}

// Record is one invocation statistic
type Record struct {
	UID     string    `json:"uid"`
	Error   string    `json:"error,omitempty"`
	Request Request   `json:"request"`
	Begin   time.Time `json:"begin"`
	End     time.Time `json:"end"`
}

// Duration returns how long the invocation took
func (r Record) Duration() time.Duration {
	return r.End.Sub(r.Begin)
}

// Environment holds project-wide environment variables
type Environment struct {
	Environment map[string]string `json:"environment"`
}

// Settings is the project configuration
type Settings struct {
	User        string      `json:"user"`
	PublicKey   string      `json:"public_key"`
	Environment Environment `json:"environment"`
}

// Template is a lambda template
type Template struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// TemplateStatus is a template with its availability on the server
type TemplateStatus struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Available   bool   `json:"available"`
}

// PolicyDefinition restricts access to lambdas
type PolicyDefinition struct {
	AllowedIP     StringSet         `json:"allowed_ip,omitempty"`
	AllowedOrigin StringSet         `json:"allowed_origin,omitempty"`
	Public        bool              `json:"public"`
	Tokens        map[string]string `json:"tokens,omitempty"`
}

// Policy is a named access policy applied to a set of lambdas
type Policy struct {
	ID         string           `json:"id"`
	Definition PolicyDefinition `json:"definition"`
	Lambdas    StringSet        `json:"lambdas"`
}

// Queue delivers requests to a lambda asynchronously
type Queue struct {
	Name           string   `json:"name"`
	Target         string   `json:"target"`
	Retry          int      `json:"retry"`
	MaxElementSize int64    `json:"max_element_size"`
	Interval       Duration `json:"interval"`
}
