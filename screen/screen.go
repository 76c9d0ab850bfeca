// Package screen names the application's screens as a closed set and maps
// each tag to a render function. Navigation state lives in a Router value,
// never in package globals, so each session carries its own history.
package screen

import "fmt"

type Screen uint8

const (
	Landing Screen = iota
	Connect
	Dashboard
	Generating
	Result
	Share
	Verify
	screenCount
)

var screenNames = [screenCount]string{
	Landing:    "landing",
	Connect:    "connect",
	Dashboard:  "dashboard",
	Generating: "generating",
	Result:     "result",
	Share:      "share",
	Verify:     "verify",
}

func (s Screen) Valid() bool {
	return s < screenCount
}

func (s Screen) String() string {
	if !s.Valid() {
		return fmt.Sprintf("screen(%d)", uint8(s))
	}
	return screenNames[s]
}

// RenderFunc produces the presentation payload for one screen. The router
// never interprets the payload.
type RenderFunc func() any

type Router struct {
	current Screen
	history []Screen
	renders map[Screen]RenderFunc
}

func NewRouter(renders map[Screen]RenderFunc) (*Router, error) {
	for s := range renders {
		if !s.Valid() {
			return nil, fmt.Errorf("unknown screen: %s", s)
		}
	}
	return &Router{current: Landing, renders: renders}, nil
}

func (r *Router) Current() Screen {
	return r.current
}

// Navigate moves to a known screen and pushes the previous one onto the
// history stack. Navigating to the current screen is a no-op.
func (r *Router) Navigate(to Screen) error {
	if !to.Valid() {
		return fmt.Errorf("unknown screen: %s", to)
	}
	if to == r.current {
		return nil
	}
	r.history = append(r.history, r.current)
	r.current = to
	return nil
}

// Back pops the history stack. On an empty stack it stays put and reports
// false.
func (r *Router) Back() bool {
	if len(r.history) == 0 {
		return false
	}
	r.current = r.history[len(r.history)-1]
	r.history = r.history[:len(r.history)-1]
	return true
}

// Render dispatches the current screen through its registered render
// function. Screens without a registered renderer yield an error rather
// than a blank payload.
func (r *Router) Render() (any, error) {
	fn, ok := r.renders[r.current]
	if !ok {
		return nil, fmt.Errorf("no renderer for screen: %s", r.current)
	}
	return fn(), nil
}
