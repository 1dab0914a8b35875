package redis

// All keys are prefixed with "procflow:" to avoid collisions.
const keyPrefix = "procflow:"

// revField holds the document revision inside its hash. Document fields
// never start with an underscore.
const revField = "_rev"

// docKey returns the hash key for a document: procflow:doc:{collection}:{key}
func docKey(collection, key string) string {
	return keyPrefix + "doc:" + collection + ":" + key
}

// changesChannel returns the pub/sub channel announcing writes to a
// document: procflow:changes:{collection}:{key}
func changesChannel(collection, key string) string {
	return keyPrefix + "changes:" + collection + ":" + key
}
