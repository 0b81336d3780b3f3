// Package artifact persists fetched catalog records to a gocloud bucket.
//
// An artifact only ever appears at its final key through a staged publish:
// the payload is first written under staging/ with a key unique to the
// item, attempt, and a random nonce, then copied to the final key and the
// staged copy deleted. A reader of the final key therefore never observes
// partial content.
//
// The bucket is addressed by URL (file://, s3://, mem://), so local
// directories and object stores share one code path.
//
// # Layout
//
//	{bucket}/{item}.json                          final artifact
//	{bucket}/staging/{item}.{attempt}.{nonce}.json  in-flight write
package artifact
