// Package voice implements the speech diagnostic pipeline: resample
// and normalize the recording, extract a fused feature vector from
// acoustic and transcript signals, score it with the binary classifier
// and apply the flag policy.
package voice
