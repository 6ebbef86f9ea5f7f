package object

// VersionedAutoscaler pairs an autoscaler with the etcd revision it was read at.
type VersionedAutoscaler struct {
	Version    int64
	Autoscaler Autoscaler
}
