package openbeta

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
)

// Job describes one import run: which OpenBeta root areas to crawl, how deep
// to follow children, and how long to wait between API calls.
type Job struct {
	Roots          []string `yaml:"roots"`
	MaxDepth       int      `yaml:"max_depth"`
	RequestDelayMS int      `yaml:"request_delay_ms"`
}

func (j Job) RequestDelay() time.Duration {
	return time.Duration(j.RequestDelayMS) * time.Millisecond
}

// LoadJob reads a job definition from a YAML file and fills in defaults.
func LoadJob(path string) (Job, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Job{}, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := yaml.Unmarshal(raw, &job); err != nil {
		return Job{}, fmt.Errorf("parse job file: %w", err)
	}

	if len(job.Roots) == 0 {
		return Job{}, fmt.Errorf("job file %s lists no roots", path)
	}
	if job.MaxDepth <= 0 {
		job.MaxDepth = 10
	}
	if job.RequestDelayMS <= 0 {
		job.RequestDelayMS = 1000
	}

	return job, nil
}
