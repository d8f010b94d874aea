// Package repolist computes the list of repositories to migrate and writes it
// into the migration tool's configuration file.
package repolist

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"repolist/pkg/patcher"
)

// ErrNoProjects is returned when the updater has no project keys to query
var ErrNoProjects = errors.New("no project keys configured")

// Lister lists the repository names that belong to a project
type Lister interface {
	FetchRepositoryNames(ctx context.Context, projectKey string) ([]string, error)
}

// Updater runs the fetch, normalize and patch pipeline
type Updater struct {
	Lister      Lister
	ProjectKeys []string
	Ignore      []string
	TargetPath  string
	Key         string

	// OnProjectFetched is called after each project listing completes
	OnProjectFetched func(projectKey string, names []string)

	Log logrus.FieldLogger
}

// Options controls a single run
type Options struct {
	DryRun bool
}

// ProjectCount records how many repositories a project returned
type ProjectCount struct {
	Key   string
	Count int
}

// Result summarises a run
type Result struct {
	Projects []ProjectCount
	Names    []string
	Added    []string
	Removed  []string
	Changed  bool
	Written  bool
}

// Run fetches every project sequentially, normalizes the aggregate and
// patches the target file. Nothing is written if any step fails.
func (u *Updater) Run(ctx context.Context, opts Options) (*Result, error) {
	if len(u.ProjectKeys) == 0 {
		return nil, ErrNoProjects
	}

	log := u.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	result := &Result{}

	var all []string
	for _, key := range u.ProjectKeys {
		names, err := u.Lister.FetchRepositoryNames(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("failed to list repositories for project %s: %w", key, err)
		}

		log.WithFields(logrus.Fields{
			"project": key,
			"count":   len(names),
		}).Debug("listed project repositories")

		if u.OnProjectFetched != nil {
			u.OnProjectFetched(key, names)
		}

		result.Projects = append(result.Projects, ProjectCount{Key: key, Count: len(names)})
		all = append(all, names...)
	}

	result.Names = Normalize(all, u.Ignore)

	fileResult, err := patcher.PatchFile(u.TargetPath, u.Key, result.Names, patcher.Options{DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}

	result.Added, result.Removed = Diff(fileResult.Previous, result.Names)
	result.Changed = fileResult.Changed
	result.Written = fileResult.Written

	log.WithFields(logrus.Fields{
		"target":  u.TargetPath,
		"total":   len(result.Names),
		"added":   len(result.Added),
		"removed": len(result.Removed),
		"written": result.Written,
	}).Debug("target file processed")

	return result, nil
}
