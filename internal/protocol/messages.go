// Package protocol defines the messages exchanged between the pool coordinator
// and its walkers.
//
// Commands flow from the coordinator to a walker through the walker's mailbox.
// Reports flow back over the private reply channel handed out in Startup.
// Teardown has no message of its own; the coordinator cancels the walker's
// context instead.
package protocol

import "fmt"

// Config is the per-scan search configuration. It is set once before any job
// is dispatched and never mutated afterwards.
type Config struct {
	RootPath   string   // Directory the scan starts from
	TargetName string   // Exact base name of the directories to find
	Exclude    []string // A path is dropped if any entry is a substring of it
}

// Clone returns a copy that does not share the Exclude backing array.
func (c Config) Clone() Config {
	out := c
	if c.Exclude != nil {
		out.Exclude = append([]string(nil), c.Exclude...)
	}
	return out
}

// Entry is one child directory found while exploring a directory.
type Entry struct {
	Path     string `json:"path"`
	IsTarget bool   `json:"isTarget"`
}

// Command is a message sent by the coordinator to a walker.
type Command interface {
	command()
}

// Report is a message sent by a walker to the coordinator.
type Report interface {
	report()
}

// Startup is the first message a walker receives. It carries the walker's id
// and the channel it must report on.
type Startup struct {
	WorkerID int
	Reply    chan<- Report
}

// ExploreConfig hands the scan configuration to a walker.
type ExploreConfig struct {
	Config Config
}

// Explore asks a walker to list the immediate children of Path.
type Explore struct {
	Path string
}

// Alive is sent once by a walker after its configuration has been applied.
type Alive struct {
	WorkerID int
}

// ScanResult is sent by a walker for every fully processed directory.
//
// Pending is the number of jobs the walker still holds (queued plus reads in
// flight) once this directory is done. Received is the total number of Explore
// messages the walker has accepted so far; the coordinator uses it to account
// for jobs still in transit.
type ScanResult struct {
	Results  []Entry
	WorkerID int
	Pending  int
	Received int
}

func (Startup) command()       {}
func (ExploreConfig) command() {}
func (Explore) command()       {}

func (Alive) report()      {}
func (ScanResult) report() {}

// Kind names a message for logging.
func Kind(msg any) string {
	switch msg.(type) {
	case Startup, *Startup:
		return "startup"
	case ExploreConfig, *ExploreConfig:
		return "exploreConfig"
	case Explore, *Explore:
		return "explore"
	case Alive, *Alive:
		return "alive"
	case ScanResult, *ScanResult:
		return "scanResult"
	default:
		return fmt.Sprintf("unknown(%T)", msg)
	}
}
