package storage

const (
	MAX_PAGE_SIZE = 16384

	REGION_FILE_EXT     = ".mwm"
	REGION_FILE_MAGIC   = "MWMR"
	REGION_FILE_VERSION = 3
)
