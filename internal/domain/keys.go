package domain

// KeyPrefix namespaces every key the service writes to Redis.
const KeyPrefix = "buyingguide:"
