// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

package sync

import "github.com/North-Dakota-Drone-Racing/billy/internal/models"

// Diff is the difference between a chapter's remote race listing and the
// locally tracked set.
type Diff struct {
	// Added lists remote races not yet tracked, in remote order.
	Added []models.RaceListing
	// Removed lists tracked race IDs the remote no longer carries.
	Removed []string
}

// Empty reports whether the diff requires no work.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0
}

// computeDiff compares the remote listing against the tracked set. An empty
// remote listing produces an empty diff: MultiGP briefly answering with zero
// races must not cascade into deleting every tracked race.
func computeDiff(remote []models.RaceListing, tracked map[string]struct{}) Diff {
	if len(remote) == 0 {
		return Diff{}
	}

	var diff Diff
	remoteIDs := make(map[string]struct{}, len(remote))
	for _, listing := range remote {
		remoteIDs[listing.RaceID] = struct{}{}
		if _, ok := tracked[listing.RaceID]; !ok {
			diff.Added = append(diff.Added, listing)
		}
	}
	for raceID := range tracked {
		if _, ok := remoteIDs[raceID]; !ok {
			diff.Removed = append(diff.Removed, raceID)
		}
	}
	return diff
}
