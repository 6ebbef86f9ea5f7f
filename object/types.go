package object

type ObjectMeta struct {
	Name string `json:"name" yaml:"name"`
}

// AutoscalerList is the layout of a targets file.
type AutoscalerList struct {
	Items []Autoscaler `json:"items" yaml:"items"`
}
