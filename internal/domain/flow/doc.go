// Package flow decodes onboarding flow documents into a typed element model.
//
// Wire documents come from several schema generations at once, so decoding
// is tolerant by construction:
//   - Dimensions accept bare numbers, suffixed strings ("2rem", "50%"),
//     "auto"/"fill" and {value, unit} objects (see DecodeUnit)
//   - Type tags are matched case-insensitively with separators ignored
//   - Missing ids are synthesized (ULID based, not stable across fetches)
//   - A malformed optional field is dropped and recorded as a Diagnostic
//   - An element that cannot be decoded becomes an Unknown placeholder
//     in its parent's list; only a document without screens fails outright
//
// New element kinds are added through a Registry:
//
//	reg := flow.NewRegistry()
//	reg.Register("video", decodeVideo, "video", "video_player")
//	doc, err := flow.NewDecoder(flow.WithRegistry(reg)).Parse(data)
package flow
