package domain

// KeyPrefix namespaces every key animerec writes to the key-value store.
const KeyPrefix = "animerec:"

// ChunkCollection is the default vector collection holding anime chunks.
const ChunkCollection = "anime_chunks"
