package metadata

import (
	"strconv"
)

type TagCode struct {
	init     string
	category string
	id       string
}

const Init string = "VK"

func (tag *TagCode) GenerateTagCode() string {

	return tag.init + "-" + tag.category + tag.id
}

func NewTagCode(categoryCode string, assetID int) TagCode {
	var code TagCode

	code.init = Init
	code.category = categoryCode
	code.id = strconv.Itoa(assetID)

	return code
}
