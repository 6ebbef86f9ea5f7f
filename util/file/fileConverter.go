package file

import (
	"os"
	"reflect"

	"github.com/go-yaml/yaml"
	"github.com/pkg/errors"
	"minihpa/object"
)

func UnmarshalFile(v interface{}, file string) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return errors.New("bad interface")
	}
	if !fileExist(file) {
		return errors.Errorf("file %s not exist", file)
	}
	buf, err := os.ReadFile(file)
	if err != nil {
		return errors.Wrapf(err, "read file %s", file)
	}
	if err := yaml.Unmarshal(buf, v); err != nil {
		return errors.Wrapf(err, "unmarshal file %s", file)
	}
	return nil
}

/*
LoadAutoscalers reads every targets file in paths, in order.

A file holds either a list

	items:
	  - metadata: {name: web}
	    spec: ...

or a single autoscaler at the top level.
*/
func LoadAutoscalers(paths ...string) ([]*object.Autoscaler, error) {
	var ret []*object.Autoscaler
	for _, p := range paths {
		list := &object.AutoscalerList{}
		if err := UnmarshalFile(list, p); err != nil {
			return nil, err
		}
		if len(list.Items) == 0 {
			single := &object.Autoscaler{}
			if err := UnmarshalFile(single, p); err != nil {
				return nil, err
			}
			if single.Metadata.Name == "" {
				return nil, errors.Errorf("%s holds no autoscaler", p)
			}
			ret = append(ret, single)
			continue
		}
		for i := range list.Items {
			ret = append(ret, &list.Items[i])
		}
	}
	return ret, nil
}

func fileExist(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}
