// Package language provides language code normalization for speech
// transcription. Patient context can carry codes, words, or BCP 47 tags;
// the whisper CLI wants ISO 639-1 and may emit full word forms back.
package language
