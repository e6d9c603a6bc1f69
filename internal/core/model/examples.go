// Copyright 2025 YishanCoding
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Example values embedded into prompts as few-shot guidance. A complete,
// well-formed example alongside the output schema measurably improves the
// structural reliability of model responses.
package model

// GetExampleScene returns a fully populated scene, used to show the
// analysis model the expected shape and register of each field.
func GetExampleScene() *VideoScene {
	return &VideoScene{
		StartTime:             "00:00",
		EndTime:               "00:04",
		RawStartTime:          0,
		RawEndTime:            4.2,
		Category:              CategoryHook,
		Description:           "Close-up of hands unzipping the backpack on a cluttered kitchen table, morning light from a window behind.",
		TranscriptOriginal:    "Okay so I was NOT expecting this to fit my whole laptop setup.",
		TranscriptTranslation: "好吧，我真没想到它能装下我整套笔记本设备。",
	}
}

// GetExampleFeature returns a sample extracted selling point.
func GetExampleFeature() FeatureItem {
	return FeatureItem{
		Text:        "Waterproof zipper keeps electronics dry in heavy rain",
		Translation: "防水拉链在大雨中保护电子产品干燥",
	}
}

// GetExampleRow returns a fully populated script row, including the
// director metadata fields the script model must always emit.
func GetExampleRow() *ScriptRow {
	return &ScriptRow{
		Timeframe:         "0-3s",
		Visual:            "POV shot grabbing the backpack off a messy bedroom floor, sneakers and laundry visible at frame edge.",
		VisualTranslation: "第一视角镜头从凌乱的卧室地板上抓起背包，画面边缘可见运动鞋和待洗衣物。",
		ShotType:          "Extreme Close-up",
		Movement:          "Handheld Shake",
		Lighting:          "Overcast Window Light",
		Audio:             "This bag survived three months of me being extremely clumsy.",
		AudioTranslation:  "这个包撑过了我极其笨手笨脚的三个月。",
		Style:             "Female, mid-20s, casual and self-deprecating",
	}
}
