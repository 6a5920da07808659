package features

// Descriptor documents one feature column.
type Descriptor struct {
	Name          string
	Description   string
	Justification string
}

// Columns lists the feature columns in FeatureVector order.
var Columns = [NumFeatures]Descriptor{
	{"client_id", "Numeric id of the client site", "Identifies the client"},
	{"server_id", "Numeric id of the server site", "Identifies the server"},
	{"mean", "Mean of the per-bucket rate means over the feature buckets", "Captures the overall level of throughput"},
	{"std_of_std", "Population standard deviation of the per-bucket rate stds", "Measures how stable the variability is"},
	{"last_mean", "Rate mean of the last feature bucket", "Most recent level available"},
	{"last_std", "Rate std of the last feature bucket", "Most recent variability available"},
	{"cv", "Mean of the bucket stds over the mean of the bucket means", "Relates variability to magnitude"},
	{"delta", "Difference between the last two bucket means", "Captures recent change"},
	{"slope", "Least squares slope of the bucket means against their index", "Represents the temporal trend"},
}

// Targets names the target columns in TargetVector order.
var Targets = [NumTargets]string{"mean_1", "stdev_1", "mean_2", "stdev_2"}

// ColumnNames returns the feature column names.
func ColumnNames() []string {
	names := make([]string, NumFeatures)
	for i, c := range Columns {
		names[i] = c.Name
	}
	return names
}
