// Package ffprobe inspects screen recordings with ffprobe before they are
// uploaded for extraction.
//
// Inspect runs the binary with JSON output and decodes the stream and
// container metadata. Result helpers answer the questions the extraction step
// asks: is there a video stream, how long is the recording, and does it carry
// a narration track.
package ffprobe
