// Package extraction turns a screen recording into the raw text description
// returned by the remote model.
//
// Client.Submit validates the input file locally (extension, regular file and,
// when enabled, an ffprobe check for a video stream), derives the MIME type and
// hands the video to a VideoModel together with the fixed business-analyst
// prompt. The response is returned verbatim; parsing belongs to the payload
// package.
//
// GeminiModel is the production VideoModel: it uploads the recording, waits
// for the service to finish processing it, issues one generateContent call and
// removes the upload afterwards.
package extraction
