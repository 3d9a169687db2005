package types

type DisplayProfile string

const (
	DisplayProfileTinyTV     DisplayProfile = "tinytv"
	DisplayProfileTinyTVFlat DisplayProfile = "tinytv-flat"
)
