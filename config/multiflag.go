package config

import (
	"strings"
)

// multiFlag holds the values of a repeated flag, e.g. the inputs in
// -input ns.conf -input ns-gslb.conf, in order. In the config file, it can
// be a list or a single value.
type multiFlag []string

func (f *multiFlag) String() string {
	return strings.Join(*f, " ")
}

func (f *multiFlag) Set(value string) error {
	*f = append(*f, value)
	return nil
}

func (f *multiFlag) UnmarshalYAML(unmarshal func(any) error) error {
	var values []string
	if err := unmarshal(&values); err == nil {
		*f = values
		return nil
	}

	var value string
	if err := unmarshal(&value); err != nil {
		return err
	}

	*f = multiFlag{value}
	return nil
}
