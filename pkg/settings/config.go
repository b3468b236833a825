package settings

// Config aggregates every tunable surface of a running engine instance:
// the engine's own construction parameters, the rotating-file logger, and
// the work-queue adapter used to fan operations across worker goroutines.
type Config struct {
	Engine    Engine    `mapstructure:"engine"`
	Logger    Logger    `mapstructure:"logger"`
	WorkQueue WorkQueue `mapstructure:"work_queue"`
}

// Engine is the configuration for the storage engine. Field names mirror
// the constructor parameters enumerated in the specification's
// external-interface table one-for-one.
type Engine struct {
	// ReadOptimized enables the tombstone log and the min/max range
	// short-circuit on reads.
	ReadOptimized bool `mapstructure:"read_optimized"`

	// C0DataStructure selects the memory-tier representation: 1 = ordered
	// B-tree, 2 = unordered append buffer.
	C0DataStructure int `mapstructure:"c0_data_structure" validate:"oneof=1 2"`

	// NumberOfLevels is the count of persistent tiers C1..CN.
	NumberOfLevels int `mapstructure:"number_of_levels" validate:"min=1"`

	// FirstLevelFileSize is the byte budget for C1; C_1 = value/bytesPerRecord.
	FirstLevelFileSize int64 `mapstructure:"first_level_file_size" validate:"min=1"`

	// SizeBetweenLevels is R, the capacity multiplier between adjacent tiers.
	SizeBetweenLevels int `mapstructure:"size_between_levels" validate:"gte=2"`

	// CopyAllFromC0, if true, moves every occupant of C0 on a rolling merge
	// instead of a P_copy-sized fraction.
	CopyAllFromC0 bool `mapstructure:"copy_all_from_c0"`

	// C0PercentageToCopy is P_copy.
	C0PercentageToCopy float64 `mapstructure:"c0_percentage_to_copy" validate:"gt=0,lte=1"`

	// C0PercentageOfC1 is P_c0_of_c1, used to derive C0_max from C_1.
	C0PercentageOfC1 float64 `mapstructure:"c0_percentage_of_c1" validate:"gt=0,lte=1"`

	// MergeStrategy selects the cascade policy; only strategy 2 is required.
	MergeStrategy int `mapstructure:"merge_strategy" validate:"oneof=1 2"`

	// ThreadedRollingMerge, if true, runs cascading merges on a detached
	// background worker instead of inline on the caller's goroutine.
	ThreadedRollingMerge bool `mapstructure:"threaded_rolling_merge"`

	// DataDir is where tier files (c1.bin..cN.bin) are created.
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// Logger is the configuration for the logger.
type Logger struct {
	LogLevel    string `mapstructure:"log_level"`
	FileLogName string `mapstructure:"file_log_name"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	MaxSize     int    `mapstructure:"max_size"`
	Compress    bool   `mapstructure:"compress"`
}

// WorkQueue is the configuration for the bounded producer/consumer adapter.
type WorkQueue struct {
	// Workers is the consumer count W.
	Workers int `mapstructure:"workers" validate:"min=1"`

	// QueuePerWorker is the per-worker capacity Q; total capacity is W*Q.
	QueuePerWorker int `mapstructure:"queue_per_worker" validate:"min=1"`
}
