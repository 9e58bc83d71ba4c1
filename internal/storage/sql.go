package storage

import (
	_ "embed"
)

const (
	insertSessionSQL = `
INSERT INTO sessions (
                      start_time, 
                      source, 
                      config) 
VALUES (?, ?, ?)`

	selectSessionSQL = `
SELECT 
    id, 
    start_time, 
    source, 
    config 
FROM sessions 
WHERE 
    id = ?`

	selectSessionsSQL = `
SELECT 
    id, 
    start_time, 
    source, 
    config 
FROM sessions
ORDER BY start_time, id`

	insertFramesSQL = `
INSERT INTO frames (session_id,
                    timestamp,
                    radio,
                    seq,
                    threshold,
                    detected,
                    readings,
                    labels)
VALUES `

	framePlaceholder = "(?, ?, ?, ?, ?, ?, ?, ?)"

	selectFramesSQL = `
SELECT session_id,
       timestamp,
       radio,
       seq,
       threshold,
       detected,
       readings,
       labels
FROM frames`

	countFramesSQL = `
SELECT COUNT(*)
FROM frames`
)

//go:embed schema.sql
var initSchemaSQL string

//go:embed indexes.sql
var initIndexesSQL string
