// Billy - MultiGP Race Sync for Discord
// Copyright 2026 North Dakota Drone Racing
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/North-Dakota-Drone-Racing/billy

// Package multigp contains the wire types for the MultiGP RaceSync web
// service. All endpoints answer with a boolean "status" field; payload shapes
// vary per endpoint. Numeric-looking values (coordinates, IDs) arrive as
// strings and are converted at the client boundary.
//
// API reference: https://www.multigp.com/apidocumentation/
package multigp

// BaseResponse is the wrapper common to every RaceSync endpoint.
type BaseResponse struct {
	Status       bool   `json:"status"`
	ErrorMessage string `json:"errorMessage,omitempty"`
}

// ChapterResponse answers chapter/findChapterFromApiKey. Unlike the race
// endpoints the chapter fields sit at the top level, not under "data".
type ChapterResponse struct {
	BaseResponse
	ChapterID   string `json:"chapterId"`
	ChapterName string `json:"chapterName"`
}

// RaceListEntry is one element of the race/listForChapter payload.
type RaceListEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RaceListResponse answers race/listForChapter.
type RaceListResponse struct {
	BaseResponse
	Data []RaceListEntry `json:"data"`
}

// RaceViewData is the payload of race/view.
type RaceViewData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Latitude    string `json:"latitude"`
	Longitude   string `json:"longitude"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Description string `json:"description"`
	CourseName  string `json:"courseName"`
	ChapterName string `json:"chapterName"`
}

// RaceViewResponse answers race/view.
type RaceViewResponse struct {
	BaseResponse
	Data RaceViewData `json:"data"`
}
